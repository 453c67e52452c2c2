package services

import (
	"context"
	"errors"
	"log"

	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/pagination"
	"xmllibrary/internal/pkg/password"
)

// User service errors
var (
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
)

// UserService handles account management
type UserService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	locker           repositories.Locker
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	locker repositories.Locker,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		locker:           locker,
	}
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Meta  *pagination.Meta       `json:"meta"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListUsers lists accounts one page at a time
func (s *UserService) ListUsers(ctx context.Context, params *pagination.Params) (*ListUsersOutput, error) {
	users, err := s.userRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	page := pagination.Slice(users.Items, params)
	out := make([]*models.UserResponse, len(page))
	for i := range page {
		out[i] = models.ToUserResponse(&page[i])
	}

	return &ListUsersOutput{
		Users: out,
		Meta:  pagination.GetMeta(params, int64(users.Len())),
	}, nil
}

// UpdateRole changes another account's role
func (s *UserService) UpdateRole(ctx context.Context, id, adminID int, role string) (*models.UserResponse, error) {
	if id == adminID {
		return nil, ErrCannotChangeOwnRole
	}
	r := domain.Role(role)
	if r != domain.RoleAdmin && r != domain.RoleLibrarian {
		return nil, ErrInvalidRole
	}

	var updated domain.User
	err := s.mutate(ctx, id, func(users *domain.Users, i int) {
		users.Items[i].Role = r
		updated = users.Items[i]
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User %d role set to %s", id, r)
	return models.ToUserResponse(&updated), nil
}

// DeleteUser removes an account and revokes its sessions
func (s *UserService) DeleteUser(ctx context.Context, id, adminID int) error {
	if id == adminID {
		return ErrCannotDeleteSelf
	}

	err := s.mutate(ctx, id, func(users *domain.Users, i int) {
		users.Items = append(users.Items[:i], users.Items[i+1:]...)
	})
	if err != nil {
		return err
	}

	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, id); err != nil {
		log.Printf("⚠️ Failed to revoke sessions of deleted user %d: %v", id, err)
	}
	log.Printf("✅ User deleted: %d", id)
	return nil
}

// ChangePassword changes user's password and signs out every session
func (s *UserService) ChangePassword(ctx context.Context, userID int, input *ChangePasswordInput) error {
	if !password.ValidatePassword(input.NewPassword) {
		return domain.ErrInvalidInput
	}
	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	var wrong bool
	err = s.mutate(ctx, userID, func(users *domain.Users, i int) {
		if !password.Verify(input.OldPassword, users.Items[i].PasswordHash) {
			wrong = true
			return
		}
		users.Items[i].PasswordHash = hashed
	})
	if err != nil {
		return err
	}
	if wrong {
		return ErrOldPasswordWrong
	}

	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}
	log.Printf("✅ Password changed for user: %d", userID)
	return nil
}

// mutate applies fn to the user with id under the users.xml lock.
// fn may leave the collection untouched, in which case nothing is written.
func (s *UserService) mutate(ctx context.Context, id int, fn func(users *domain.Users, i int)) error {
	return s.locker.WithLock(ctx, func(ctx context.Context) error {
		users, err := s.userRepo.Load(ctx)
		if err != nil {
			return err
		}

		i := -1
		for j := range users.Items {
			if users.Items[j].ID == id {
				i = j
				break
			}
		}
		if i < 0 {
			return domain.ErrUserNotFound
		}

		before := users.Clone()
		fn(users, i)
		if usersEqual(before, users) {
			return nil
		}
		return s.userRepo.Save(ctx, users)
	}, repositories.UsersFile)
}

func usersEqual(a, b *domain.Users) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	return true
}
