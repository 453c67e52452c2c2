package repositories

import (
	"context"

	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/core/domain"
)

// Files under the data root
const (
	BooksFile         = "books.xml"
	MembersFile       = "members.xml"
	BorrowingsFile    = "borrowings.xml"
	UsersFile         = "users.xml"
	RefreshTokensFile = "refresh_tokens.xml"
)

// Locker serializes load-mutate-save sequences per file
type Locker interface {
	WithLock(ctx context.Context, fn func(ctx context.Context) error, fileNames ...string) error
}

// BookRepository defines book repository interface.
// Load never returns nil; Save validates the whole collection before writing.
type BookRepository interface {
	Load(ctx context.Context) (*domain.Books, error)
	Save(ctx context.Context, books *domain.Books) error
	Validate(books *domain.Books) error
	GetByID(ctx context.Context, id int) (*domain.Book, error)
}

// MemberRepository defines member repository interface
type MemberRepository interface {
	Load(ctx context.Context) (*domain.Members, error)
	Save(ctx context.Context, members *domain.Members) error
	Validate(members *domain.Members) error
	GetByID(ctx context.Context, id int) (*domain.Member, error)
}

// BorrowingRepository defines borrowing repository interface
type BorrowingRepository interface {
	Load(ctx context.Context) (*domain.Borrowings, error)
	Save(ctx context.Context, borrowings *domain.Borrowings) error
	Validate(borrowings *domain.Borrowings) error
	GetByID(ctx context.Context, id int) (*domain.Borrowing, error)
}

// UserRepository defines user repository interface.
// users.xml has no schema and is saved without validation.
type UserRepository interface {
	Load(ctx context.Context) (*domain.Users, error)
	Save(ctx context.Context, users *domain.Users) error
	GetByID(ctx context.Context, id int) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id int) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID int) error
	DeleteExpired(ctx context.Context) (int, error)
}
