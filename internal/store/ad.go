package store

import (
	"context"

	"github.com/phrazzld/ad-moderation/internal/domain"
)

// AdStore provides read access to ads joined with their owners.
type AdStore interface {
	// GetWithOwner returns ErrAdNotFound when the ad does not exist, which is
	// a recoverable condition: the ad may be deleted after submission.
	GetWithOwner(ctx context.Context, itemID int64) (*domain.AdWithOwner, error)

	// Create inserts an ad and returns its id.
	Create(ctx context.Context, ad *domain.Ad) (int64, error)
}

// UserStore provides access to ad owners.
type UserStore interface {
	Create(ctx context.Context, isVerified bool) (int64, error)

	// Get returns ErrUserNotFound when the user does not exist.
	Get(ctx context.Context, userID int64) (*domain.User, error)
}
