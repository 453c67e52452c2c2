package config

import (
	"context"
	"log"

	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/password"
)

// SeedAccount is a user created when users.xml is empty
type SeedAccount struct {
	Username string
	Password string
	Role     domain.Role
}

// DefaultAccounts returns the accounts seeded on first start.
// Call it after Load so .env overrides apply.
func DefaultAccounts() []SeedAccount {
	return []SeedAccount{
		{Username: getEnv("SEED_ADMIN_USERNAME", "admin"), Password: getEnv("SEED_ADMIN_PASSWORD", "admin123"), Role: domain.RoleAdmin},
		{Username: "bader", Password: "bader123", Role: domain.RoleAdmin},
	}
}

// Seeder handles initial data
type Seeder struct {
	users  repositories.UserRepository
	locker repositories.Locker
}

// NewSeeder creates a new seeder instance
func NewSeeder(users repositories.UserRepository, locker repositories.Locker) *Seeder {
	return &Seeder{users: users, locker: locker}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context, accounts []SeedAccount) error {
	log.Println("🌱 Running seeders...")

	if err := s.seedUsers(ctx, accounts); err != nil {
		return err
	}

	log.Println("✅ Seeding completed")
	return nil
}

// seedUsers writes accounts only when no user exists yet
func (s *Seeder) seedUsers(ctx context.Context, accounts []SeedAccount) error {
	return s.locker.WithLock(ctx, func(ctx context.Context) error {
		users, err := s.users.Load(ctx)
		if err != nil {
			return err
		}
		if users.Len() > 0 {
			return nil
		}

		for _, a := range accounts {
			hashed, err := password.Hash(a.Password)
			if err != nil {
				return err
			}
			users.Items = append(users.Items, domain.User{
				ID:           users.NextID(),
				Username:     a.Username,
				PasswordHash: hashed,
				Role:         a.Role,
			})
			log.Printf("✅ Default user created: %s (%s)", a.Username, a.Role)
		}
		return s.users.Save(ctx, users)
	}, repositories.UsersFile)
}
