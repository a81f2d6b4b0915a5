package domain

import "unicode/utf8"

// User is the owner of an ad. Only the verification flag matters for moderation.
type User struct {
	ID         int64 `json:"id"`
	IsVerified bool  `json:"is_verified"`
}

// Ad is a classified-ad listing.
type Ad struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    int    `json:"category"`
	ImagesQty   int    `json:"images_qty"`
}

// Validate checks the fields the moderation pipeline relies on.
func (a *Ad) Validate() error {
	if a.UserID <= 0 {
		return ErrInvalidID
	}
	if a.ImagesQty < 0 {
		return ErrNegativeImages
	}
	return nil
}

// AdWithOwner is the read model joined from an ad and its owning user.
// It is immutable from the worker's point of view.
type AdWithOwner struct {
	ItemID      int64
	ImagesQty   int
	Description string
	Category    int
	IsVerified  bool
}

// Features extracts the classifier inputs. Description length counts
// characters, not bytes.
func (a AdWithOwner) Features() Features {
	return Features{
		IsVerifiedSeller:  a.IsVerified,
		ImagesQty:         a.ImagesQty,
		DescriptionLength: utf8.RuneCountInString(a.Description),
		Category:          a.Category,
	}
}

// Features are the raw, unnormalized inputs of the violation classifier.
type Features struct {
	IsVerifiedSeller  bool
	ImagesQty         int
	DescriptionLength int
	Category          int
}

// Prediction is the classifier's verdict for one ad.
type Prediction struct {
	IsViolation bool    `json:"is_violation"`
	Probability float64 `json:"probability"`
}
