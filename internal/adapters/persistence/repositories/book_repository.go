package repositories

import (
	"context"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
)

// bookRepository implements BookRepository over books.xml
type bookRepository struct {
	doc *document[domain.Books, *domain.Books]
}

// NewBookRepository creates a new book repository
func NewBookRepository(store *xmlstore.Store, validator *xmlschema.Validator) BookRepository {
	return &bookRepository{doc: &document[domain.Books, *domain.Books]{
		store:     store,
		validator: validator,
		fileName:  BooksFile,
		schema:    xmlschema.Books,
	}}
}

// Load returns every book
func (r *bookRepository) Load(ctx context.Context) (*domain.Books, error) {
	return r.doc.load(ctx)
}

// Save validates and writes books.xml
func (r *bookRepository) Save(ctx context.Context, books *domain.Books) error {
	return r.doc.save(ctx, books)
}

// Validate checks books against the schema without writing
func (r *bookRepository) Validate(books *domain.Books) error {
	return r.doc.validate(books)
}

// GetByID gets a book by ID
func (r *bookRepository) GetByID(ctx context.Context, id int) (*domain.Book, error) {
	books, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	i := books.Index(id)
	if i < 0 {
		return nil, domain.ErrBookNotFound
	}
	return &books.Items[i], nil
}
