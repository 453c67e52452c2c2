package repositories

import (
	"context"

	"xmllibrary/internal/adapters/persistence/xmlschema"
	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
)

// borrowingRepository implements BorrowingRepository over borrowings.xml
type borrowingRepository struct {
	doc *document[domain.Borrowings, *domain.Borrowings]
}

// NewBorrowingRepository creates a new borrowing repository
func NewBorrowingRepository(store *xmlstore.Store, validator *xmlschema.Validator) BorrowingRepository {
	return &borrowingRepository{doc: &document[domain.Borrowings, *domain.Borrowings]{
		store:     store,
		validator: validator,
		fileName:  BorrowingsFile,
		schema:    xmlschema.Borrowings,
	}}
}

func (r *borrowingRepository) Load(ctx context.Context) (*domain.Borrowings, error) {
	return r.doc.load(ctx)
}

func (r *borrowingRepository) Save(ctx context.Context, borrowings *domain.Borrowings) error {
	return r.doc.save(ctx, borrowings)
}

// Validate checks borrowings against the schema without writing
func (r *borrowingRepository) Validate(borrowings *domain.Borrowings) error {
	return r.doc.validate(borrowings)
}

// GetByID gets a borrowing by ID
func (r *borrowingRepository) GetByID(ctx context.Context, id int) (*domain.Borrowing, error) {
	borrowings, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	i := borrowings.Index(id)
	if i < 0 {
		return nil, domain.ErrBorrowingNotFound
	}
	return &borrowings.Items[i], nil
}
