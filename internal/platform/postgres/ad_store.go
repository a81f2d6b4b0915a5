package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// PostgresAdStore implements the store.AdStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAdStore struct {
	db store.DBTX
}

// NewPostgresAdStore creates a new PostgreSQL implementation of the AdStore interface.
func NewPostgresAdStore(db store.DBTX) *PostgresAdStore {
	return &PostgresAdStore{db: db}
}

// Ensure PostgresAdStore implements store.AdStore interface
var _ store.AdStore = (*PostgresAdStore)(nil)

// GetWithOwner implements store.AdStore.GetWithOwner
func (s *PostgresAdStore) GetWithOwner(ctx context.Context, itemID int64) (*domain.AdWithOwner, error) {
	var ad domain.AdWithOwner
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.images_qty, a.description, a.category, u.is_verified
		FROM ads a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1
	`, itemID).Scan(&ad.ItemID, &ad.ImagesQty, &ad.Description, &ad.Category, &ad.IsVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad %d: %w", itemID, MapError(err))
	}
	return &ad, nil
}

// Create implements store.AdStore.Create
func (s *PostgresAdStore) Create(ctx context.Context, ad *domain.Ad) (int64, error) {
	if err := ad.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ads (user_id, name, description, category, images_qty)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, ad.UserID, ad.Name, ad.Description, ad.Category, ad.ImagesQty).Scan(&id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: user_id=%d", store.ErrUserNotFound, ad.UserID)
		}
		return 0, fmt.Errorf("failed to create ad: %w", MapError(err))
	}
	ad.ID = id
	return id, nil
}
