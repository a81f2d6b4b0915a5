package api

import "github.com/phrazzld/ad-moderation/internal/domain"

// AsyncPredictRequest is the body of POST /async_predict.
type AsyncPredictRequest struct {
	ItemID int64 `json:"item_id" validate:"gt=0"`
}

// AsyncPredictResponse acknowledges an accepted moderation request.
type AsyncPredictResponse struct {
	TaskID  int64  `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ModerationResultResponse reports a task. Verdict fields are null until
// the task completes; error_message is null unless it failed.
type ModerationResultResponse struct {
	TaskID       int64    `json:"task_id"`
	Status       string   `json:"status"`
	IsViolation  *bool    `json:"is_violation"`
	Probability  *float64 `json:"probability"`
	ErrorMessage *string  `json:"error_message"`
}

func taskToResponse(t *domain.ModerationTask) ModerationResultResponse {
	return ModerationResultResponse{
		TaskID:       t.ID,
		Status:       string(t.Status.Public()),
		IsViolation:  t.IsViolation,
		Probability:  t.Probability,
		ErrorMessage: t.ErrorMessage,
	}
}

// PredictRequest is the body of POST /predict: a complete ad description
// scored without touching the database. Pointer fields distinguish a
// missing field from its zero value.
type PredictRequest struct {
	SellerID         *int64  `json:"seller_id" validate:"required"`
	IsVerifiedSeller *bool   `json:"is_verified_seller" validate:"required"`
	ItemID           *int64  `json:"item_id" validate:"required"`
	Name             *string `json:"name" validate:"required"`
	Description      *string `json:"description" validate:"required"`
	Category         *int    `json:"category" validate:"required"`
	ImagesQty        *int    `json:"images_qty" validate:"required"`
}

// Features assumes the request has been validated.
func (p PredictRequest) Features() domain.Features {
	return domain.AdWithOwner{
		ItemID:      *p.ItemID,
		ImagesQty:   *p.ImagesQty,
		Description: *p.Description,
		Category:    *p.Category,
		IsVerified:  *p.IsVerifiedSeller,
	}.Features()
}

// SimplePredictRequest is the body of POST /simple_predict.
type SimplePredictRequest struct {
	ItemID int64 `json:"item_id" validate:"gt=0"`
}

// PredictResponse is the synchronous verdict.
type PredictResponse struct {
	IsViolation bool    `json:"is_violation"`
	Probability float64 `json:"probability"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// MessageResponse is a body with a single message.
type MessageResponse struct {
	Message string `json:"message"`
}
