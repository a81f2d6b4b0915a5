package scoring

import (
	"fmt"

	"github.com/phrazzld/ad-moderation/internal/domain"
)

// NumFeatures is the width of the model input vector.
const NumFeatures = 4

// Normalization caps.
const (
	maxImages            = 10
	maxDescriptionLength = 1000
	maxCategory          = 100
)

// Vector is a normalized model input:
// [is_verified, images/10, description_length/1000, category/100], each
// count capped before scaling.
type Vector [NumFeatures]float64

// PrepareFeatures normalizes raw features into a model input.
func PrepareFeatures(f domain.Features) (Vector, error) {
	if f.ImagesQty < 0 {
		return Vector{}, fmt.Errorf("%w: %v", ErrInvalidFeatures, domain.ErrNegativeImages)
	}
	if f.DescriptionLength < 0 {
		return Vector{}, fmt.Errorf("%w: negative description length", ErrInvalidFeatures)
	}

	var verified float64
	if f.IsVerifiedSeller {
		verified = 1
	}
	return Vector{
		verified,
		float64(min(f.ImagesQty, maxImages)) / maxImages,
		float64(min(f.DescriptionLength, maxDescriptionLength)) / maxDescriptionLength,
		float64(min(f.Category, maxCategory)) / maxCategory,
	}, nil
}
