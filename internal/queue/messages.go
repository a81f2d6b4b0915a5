package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is RFC 3339 in UTC at second precision with a literal Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ModerationMessage is the primary-channel envelope.
type ModerationMessage struct {
	ItemID    int64  `json:"item_id"`
	Timestamp string `json:"timestamp"`
}

// NewModerationMessage stamps a request for itemID at now.
func NewModerationMessage(itemID int64, now time.Time) ModerationMessage {
	return ModerationMessage{ItemID: itemID, Timestamp: FormatTimestamp(now)}
}

// Encode serializes the envelope.
func (m ModerationMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Key partitions messages by item so requests for one item stay ordered.
func (m ModerationMessage) Key() []byte {
	return []byte(strconv.FormatInt(m.ItemID, 10))
}

// DeadLetterMessage is the dead-letter envelope. OriginalMessage is the
// decoded request object, or {"raw": "<text>"} when the body was undecodable.
type DeadLetterMessage struct {
	OriginalMessage any    `json:"original_message"`
	Error           string `json:"error"`
	Timestamp       string `json:"timestamp"`
	RetryCount      int    `json:"retry_count"`
}

// Encode serializes the envelope.
func (m DeadLetterMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// RawPayload wraps an undecodable body for the dead-letter channel.
func RawPayload(body []byte) map[string]any {
	return map[string]any{"raw": string(bytes.ToValidUTF8(body, []byte("�")))}
}

// DecodeModerationMessage parses body into a request. It also returns the
// body as a generic object so it can be forwarded unchanged to the
// dead-letter channel. A body without a positive item_id is invalid.
func DecodeModerationMessage(body []byte) (ModerationMessage, map[string]any, error) {
	var original map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&original); err != nil {
		return ModerationMessage{}, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if original == nil {
		return ModerationMessage{}, nil, fmt.Errorf("%w: body is not an object", ErrInvalidPayload)
	}

	var msg ModerationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return ModerationMessage{}, original, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if msg.ItemID <= 0 {
		return ModerationMessage{}, original, fmt.Errorf("%w: missing or non-positive item_id", ErrInvalidPayload)
	}
	return msg, original, nil
}
