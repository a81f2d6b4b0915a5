package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, 3, 9, 15, 4, 5, 999_000_000, loc)

	assert.Equal(t, "2024-03-09T12:04:05Z", FormatTimestamp(ts))
}

func TestModerationMessage_Encode(t *testing.T) {
	msg := NewModerationMessage(7, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	body, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"item_id":7,"timestamp":"2024-01-02T03:04:05Z"}`, string(body))
	assert.Equal(t, []byte("7"), msg.Key())
}

func TestDecodeModerationMessage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantItemID  int64
		wantErr     bool
		wantObjects bool
	}{
		{name: "valid", body: `{"item_id": 42, "timestamp": "2024-01-02T03:04:05Z"}`, wantItemID: 42, wantObjects: true},
		{name: "extra fields are tolerated", body: `{"item_id": 42, "source": "api"}`, wantItemID: 42, wantObjects: true},
		{name: "not json", body: `not-json`, wantErr: true},
		{name: "json array", body: `[1,2]`, wantErr: true},
		{name: "json null", body: `null`, wantErr: true},
		{name: "missing item_id", body: `{"timestamp": "x"}`, wantErr: true, wantObjects: true},
		{name: "zero item_id", body: `{"item_id": 0}`, wantErr: true, wantObjects: true},
		{name: "string item_id", body: `{"item_id": "7"}`, wantErr: true, wantObjects: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, original, err := DecodeModerationMessage([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantItemID, msg.ItemID)
			}
			assert.Equal(t, tt.wantObjects, original != nil)
		})
	}
}

func TestDecodeModerationMessage_PreservesOriginal(t *testing.T) {
	_, original, err := DecodeModerationMessage([]byte(`{"item_id": 9007199254740993, "timestamp": "t"}`))
	require.NoError(t, err)

	record := DeadLetterMessage{OriginalMessage: original, Error: "boom", Timestamp: "t", RetryCount: 2}
	body, err := record.Encode()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"original_message":{"item_id":9007199254740993,"timestamp":"t"},"error":"boom","timestamp":"t","retry_count":2}`,
		string(body))
}

func TestRawPayload(t *testing.T) {
	raw := RawPayload([]byte("bad\xffbody"))
	body, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":"bad�body"}`, string(body))
}
