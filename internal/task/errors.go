package task

import (
	"errors"
	"fmt"
)

// ErrNoPendingTask is the kind of DomainError raised when a message
// references an item with no pending task.
var ErrNoPendingTask = errors.New("no pending task")

// ErrAdNotFound is the kind of DomainError raised when the ad behind a
// claimed task no longer exists.
var ErrAdNotFound = errors.New("ad not found")

// DomainError is a deterministic, non-retryable failure of one message.
// Its message is what gets stored on the task and sent to the dead-letter
// channel.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

func noPendingTask(itemID int64) *DomainError {
	return &DomainError{Kind: ErrNoPendingTask, Message: fmt.Sprintf("no pending task for item_id=%d", itemID)}
}

func adNotFound(itemID int64) *DomainError {
	return &DomainError{Kind: ErrAdNotFound, Message: fmt.Sprintf("Ad not found: item_id=%d", itemID)}
}
