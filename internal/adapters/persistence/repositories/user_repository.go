package repositories

import (
	"context"

	"xmllibrary/internal/adapters/persistence/xmlstore"
	"xmllibrary/internal/core/domain"
)

// userRepository implements UserRepository over users.xml
type userRepository struct {
	doc *document[domain.Users, *domain.Users]
}

// NewUserRepository creates a new user repository
func NewUserRepository(store *xmlstore.Store) UserRepository {
	return &userRepository{doc: &document[domain.Users, *domain.Users]{
		store:    store,
		fileName: UsersFile,
	}}
}

func (r *userRepository) Load(ctx context.Context) (*domain.Users, error) {
	return r.doc.load(ctx)
}

func (r *userRepository) Save(ctx context.Context, users *domain.Users) error {
	return r.doc.save(ctx, users)
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	users, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users.Items {
		if users.Items[i].ID == id {
			return &users.Items[i], nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetByUsername gets a user by username, ignoring case
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	users, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	if u := users.FindByUsername(username); u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

// ExistsByUsername checks if username exists
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	users, err := r.doc.load(ctx)
	if err != nil {
		return false, err
	}
	return users.FindByUsername(username) != nil, nil
}
