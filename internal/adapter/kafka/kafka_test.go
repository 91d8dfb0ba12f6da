package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := domain.StageEvent{
		RunID:  "a1b2c3d4e5f60718",
		State:  "HYDROLOGY",
		Detail: "threshold=5000",
		At:     at,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("a1b2c3d4e5f60718"), msg.Key)
	assert.JSONEq(t,
		`{"run_id":"a1b2c3d4e5f60718","state":"HYDROLOGY","detail":"threshold=5000","at":"2026-03-14T09:30:00Z"}`,
		string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "state", msg.Headers[0].Key)
	assert.Equal(t, []byte("HYDROLOGY"), msg.Headers[0].Value)
	assert.Equal(t, "at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-14T09:30:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_OmitsEmptyDetail(t *testing.T) {
	event := domain.StageEvent{
		RunID: "a1b2c3d4e5f60718",
		State: "DONE",
		At:    time.Date(2026, 3, 14, 9, 45, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), "detail")
}
