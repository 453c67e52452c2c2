package repositories

import (
	"context"
	"errors"
	"time"

	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/adapters/persistence/xmlstore"
)

// ErrRefreshTokenNotFound is returned when no live token matches
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// refreshTokenRepository implements RefreshTokenRepository over refresh_tokens.xml.
// Every write holds the file lock for the whole load-modify-save.
type refreshTokenRepository struct {
	store *xmlstore.Store
	doc   *document[models.RefreshTokens, *models.RefreshTokens]
	now   func() time.Time
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(store *xmlstore.Store) RefreshTokenRepository {
	return &refreshTokenRepository{
		store: store,
		doc: &document[models.RefreshTokens, *models.RefreshTokens]{
			store:    store,
			fileName: RefreshTokensFile,
		},
		now: time.Now,
	}
}

// update runs fn over the locked collection and saves when fn reports a change
func (r *refreshTokenRepository) update(ctx context.Context, fn func(tokens *models.RefreshTokens) bool) error {
	return r.store.WithLock(ctx, func(ctx context.Context) error {
		tokens, err := r.doc.load(ctx)
		if err != nil {
			return err
		}
		if !fn(tokens) {
			return nil
		}
		return r.doc.save(ctx, tokens)
	}, RefreshTokensFile)
}

// Create creates a new refresh token
func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.update(ctx, func(tokens *models.RefreshTokens) bool {
		token.ID = tokens.NextID()
		token.CreatedAt = r.now().UTC()
		tokens.Items = append(tokens.Items, *token)
		return true
	})
}

// GetByTokenHash gets a non-revoked refresh token by its hash
func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	tokens, err := r.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tokens.Items {
		t := &tokens.Items[i]
		if t.TokenHash == tokenHash && !t.IsRevoked() {
			return t, nil
		}
	}
	return nil, ErrRefreshTokenNotFound
}

// Revoke revokes a refresh token by ID
func (r *refreshTokenRepository) Revoke(ctx context.Context, id int) error {
	return r.revokeWhere(ctx, func(t *models.RefreshToken) bool { return t.ID == id })
}

// RevokeByTokenHash revokes a refresh token by its hash
func (r *refreshTokenRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	return r.revokeWhere(ctx, func(t *models.RefreshToken) bool { return t.TokenHash == tokenHash })
}

// RevokeAllByUserID revokes all refresh tokens for a user
func (r *refreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID int) error {
	return r.revokeWhere(ctx, func(t *models.RefreshToken) bool { return t.UserID == userID })
}

func (r *refreshTokenRepository) revokeWhere(ctx context.Context, match func(*models.RefreshToken) bool) error {
	now := r.now().UTC()
	return r.update(ctx, func(tokens *models.RefreshTokens) bool {
		changed := false
		for i := range tokens.Items {
			t := &tokens.Items[i]
			if !t.IsRevoked() && match(t) {
				revokedAt := now
				t.RevokedAt = &revokedAt
				changed = true
			}
		}
		return changed
	})
}

// DeleteExpired deletes all expired tokens (cleanup job)
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	removed := 0
	now := r.now()
	err := r.update(ctx, func(tokens *models.RefreshTokens) bool {
		kept := tokens.Items[:0]
		for _, t := range tokens.Items {
			if t.ExpiresAt.Before(now) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		tokens.Items = kept
		return removed > 0
	})
	return removed, err
}
