package messaging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	raw, err := Encode([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))

	raw, err = Encode(json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(raw))

	raw, err = Encode(Envelope{Type: "appointment.created", Payload: json.RawMessage(`{"name":"Alice"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "00000000-0000-0000-0000-000000000000",
		"type": "appointment.created",
		"aggregate_id": "00000000-0000-0000-0000-000000000000",
		"payload": {"name": "Alice"},
		"occurred_at": "0001-01-01T00:00:00Z"
	}`, string(raw))
}
