package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// MemoryAdStore is an in-memory store.AdStore and store.UserStore.
type MemoryAdStore struct {
	mu     sync.Mutex
	ads    map[int64]domain.Ad
	users  map[int64]domain.User
	nextID int64

	// GetWithOwnerCalls counts lookups.
	GetWithOwnerCalls int

	GetWithOwnerFn func(ctx context.Context, itemID int64) (*domain.AdWithOwner, error)
}

var (
	_ store.AdStore   = (*MemoryAdStore)(nil)
	_ store.UserStore = (*MemoryUserStore)(nil)
)

// NewMemoryAdStore returns an empty store.
func NewMemoryAdStore() *MemoryAdStore {
	return &MemoryAdStore{
		ads:   make(map[int64]domain.Ad),
		users: make(map[int64]domain.User),
	}
}

// AddAd stores ad under ad.ID together with an owner of the given
// verification status.
func (s *MemoryAdStore) AddAd(ad domain.Ad, ownerVerified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ad.UserID == 0 {
		ad.UserID = ad.ID
	}
	s.users[ad.UserID] = domain.User{ID: ad.UserID, IsVerified: ownerVerified}
	s.ads[ad.ID] = ad
}

// DeleteAd removes an ad, as if it were deleted after submission.
func (s *MemoryAdStore) DeleteAd(itemID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ads, itemID)
}

// GetWithOwner implements store.AdStore.GetWithOwner
func (s *MemoryAdStore) GetWithOwner(ctx context.Context, itemID int64) (*domain.AdWithOwner, error) {
	s.mu.Lock()
	s.GetWithOwnerCalls++
	s.mu.Unlock()
	if s.GetWithOwnerFn != nil {
		return s.GetWithOwnerFn(ctx, itemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[itemID]
	if !ok {
		return nil, store.ErrAdNotFound
	}
	owner, ok := s.users[ad.UserID]
	if !ok {
		return nil, store.ErrAdNotFound
	}
	return &domain.AdWithOwner{
		ItemID:      ad.ID,
		ImagesQty:   ad.ImagesQty,
		Description: ad.Description,
		Category:    ad.Category,
		IsVerified:  owner.IsVerified,
	}, nil
}

// Create implements store.AdStore.Create
func (s *MemoryAdStore) Create(ctx context.Context, ad *domain.Ad) (int64, error) {
	if err := ad.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ad.UserID]; !ok {
		return 0, store.ErrUserNotFound
	}
	s.nextID++
	ad.ID = s.nextID
	s.ads[ad.ID] = *ad
	return ad.ID, nil
}

// Users returns a store.UserStore sharing this store's users.
func (s *MemoryAdStore) Users() *MemoryUserStore {
	return &MemoryUserStore{ads: s}
}

// MemoryUserStore is the user side of MemoryAdStore.
type MemoryUserStore struct {
	ads *MemoryAdStore
}

// Create implements store.UserStore.Create
func (u *MemoryUserStore) Create(ctx context.Context, isVerified bool) (int64, error) {
	s := u.ads
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.users) + 1)
	for {
		if _, taken := s.users[id]; !taken {
			break
		}
		id++
	}
	s.users[id] = domain.User{ID: id, IsVerified: isVerified}
	return id, nil
}

// Get implements store.UserStore.Get
func (u *MemoryUserStore) Get(ctx context.Context, userID int64) (*domain.User, error) {
	s := u.ads
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}
