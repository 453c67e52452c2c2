package services

import (
	"context"
	"log"
	"strings"
	"time"

	"xmllibrary/internal/adapters/persistence/codec"
	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmltransform"
	"xmllibrary/internal/core/domain"
)

// BookService handles catalogue business logic
type BookService struct {
	bookRepo repositories.BookRepository
	locker   repositories.Locker
	engine   *xmltransform.Engine
	timeout  time.Duration
}

// NewBookService creates a new book service.
// transformTimeout bounds every XSLT run; zero means no bound.
func NewBookService(
	bookRepo repositories.BookRepository,
	locker repositories.Locker,
	engine *xmltransform.Engine,
	transformTimeout time.Duration,
) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		locker:   locker,
		engine:   engine,
		timeout:  transformTimeout,
	}
}

// List returns every book in file order
func (s *BookService) List(ctx context.Context) ([]domain.Book, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return books.Items, nil
}

// GetByID gets a book by ID
func (s *BookService) GetByID(ctx context.Context, id int) (*domain.Book, error) {
	return s.bookRepo.GetByID(ctx, id)
}

// Create adds a book with the next free id
func (s *BookService) Create(ctx context.Context, input *BookInput) (*domain.Book, error) {
	var created domain.Book

	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		books, err := s.bookRepo.Load(ctx)
		if err != nil {
			return err
		}

		book := domain.Book{ID: books.NextID()}
		input.apply(&book)
		books.Items = append(books.Items, book)

		if err := s.bookRepo.Save(ctx, books); err != nil {
			return err
		}
		created = book
		return nil
	}, repositories.BooksFile)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Book created: %d %q", created.ID, created.Title)
	return &created, nil
}

// Update replaces the writable fields of a book
func (s *BookService) Update(ctx context.Context, id int, input *BookInput) (*domain.Book, error) {
	var updated domain.Book

	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		books, err := s.bookRepo.Load(ctx)
		if err != nil {
			return err
		}

		i := books.Index(id)
		if i < 0 {
			return domain.ErrBookNotFound
		}
		input.apply(&books.Items[i])

		if err := s.bookRepo.Save(ctx, books); err != nil {
			return err
		}
		updated = books.Items[i]
		return nil
	}, repositories.BooksFile)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Book updated: %d", id)
	return &updated, nil
}

// Delete removes a book. Its id is never reused.
func (s *BookService) Delete(ctx context.Context, id int) error {
	err := s.locker.WithLock(ctx, func(ctx context.Context) error {
		books, err := s.bookRepo.Load(ctx)
		if err != nil {
			return err
		}

		i := books.Index(id)
		if i < 0 {
			return domain.ErrBookNotFound
		}
		books.Items = append(books.Items[:i], books.Items[i+1:]...)
		return s.bookRepo.Save(ctx, books)
	}, repositories.BooksFile)
	if err != nil {
		return err
	}

	log.Printf("✅ Book deleted: %d", id)
	return nil
}

// Search filters the catalogue by every non-empty criterion
func (s *BookService) Search(ctx context.Context, q BookSearch) ([]domain.Book, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Book, 0)
	for _, b := range books.Items {
		if q.Title != "" && !containsFold(b.Title, q.Title) {
			continue
		}
		if q.Author != "" && !containsFold(b.Author, q.Author) {
			continue
		}
		if q.ISBN != "" && !containsFold(b.ISBN, q.ISBN) {
			continue
		}
		if q.Publisher != "" && !containsFold(b.Publisher, q.Publisher) {
			continue
		}
		if q.Genre != "" && !containsFold(b.Genre, q.Genre) {
			continue
		}
		if q.Available != nil && (b.AvailableCopies > 0) != *q.Available {
			continue
		}
		results = append(results, b)
	}
	return results, nil
}

// AdvancedSearch runs one of the named searches.
// author and genre need a term; an unknown kind or missing term matches nothing.
func (s *BookService) AdvancedSearch(ctx context.Context, kind, term string) ([]domain.Book, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	var match func(b *domain.Book) bool
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case SearchByAuthor:
		if term != "" {
			match = func(b *domain.Book) bool { return containsFold(b.Author, term) }
		}
	case SearchByGenre:
		if term != "" {
			match = func(b *domain.Book) bool { return containsFold(b.Genre, term) }
		}
	case SearchAvailable:
		match = func(b *domain.Book) bool { return b.AvailableCopies > 0 }
	case SearchOutOfStock:
		match = func(b *domain.Book) bool { return b.AvailableCopies == 0 }
	}

	results := make([]domain.Book, 0)
	if match == nil {
		return results, nil
	}
	for i := range books.Items {
		if match(&books.Items[i]) {
			results = append(results, books.Items[i])
		}
	}
	return results, nil
}

// CatalogueXML returns books.xml as currently stored
func (s *BookService) CatalogueXML(ctx context.Context) (string, error) {
	books, err := s.bookRepo.Load(ctx)
	if err != nil {
		return "", err
	}
	return codec.Encode(books)
}

// CatalogueHTML renders the catalogue through the books stylesheet
func (s *BookService) CatalogueHTML(ctx context.Context) (string, error) {
	text, err := s.CatalogueXML(ctx)
	if err != nil {
		return "", err
	}
	return transform(ctx, s.engine, s.timeout, text, xmltransform.BooksStylesheet)
}

// QueryXPath evaluates expression against the catalogue
func (s *BookService) QueryXPath(ctx context.Context, expression string) ([]string, error) {
	text, err := s.CatalogueXML(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.QueryXPath(text, expression)
}

// ValidateDTD reports whether the stored catalogue satisfies books.dtd
func (s *BookService) ValidateDTD(ctx context.Context) (bool, error) {
	text, err := s.CatalogueXML(ctx)
	if err != nil {
		return false, err
	}
	return s.engine.ValidateWithDTD(text, xmlschema.Books), nil
}

// transform applies a stylesheet bounded by timeout
func transform(ctx context.Context, engine *xmltransform.Engine, timeout time.Duration, text, stylesheet string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return engine.TransformToHTML(ctx, text, stylesheet)
}
