package store

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLog_BoundedRing(t *testing.T) {
	r := NewRequestLog(10)

	for i := 1; i <= 13; i++ {
		r.Add(json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
	}

	entries := r.Entries()
	require.Len(t, entries, 10)
	assert.JSONEq(t, `{"n":4}`, string(entries[0].Data))
	assert.JSONEq(t, `{"n":13}`, string(entries[9].Data))
}

func TestRequestLog_LastRequest(t *testing.T) {
	r := NewRequestLog(10)

	assert.JSONEq(t, `{}`, string(r.LastRequest()))

	r.Add(json.RawMessage(`{"a":1}`))
	r.Add(json.RawMessage(`{"b":2}`))
	assert.JSONEq(t, `{"b":2}`, string(r.LastRequest()))
}
