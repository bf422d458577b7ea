package protocol

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReader(t *testing.T) {
	stream := ": keepalive\n" +
		"event: message\n" +
		"id: 1\n" +
		"data: {\"type\":\"RUN_STARTED\"}\n" +
		"\n" +
		"\n" +
		"data: line one\n" +
		"data: line two\n" +
		"\n" +
		"data:no-space\n"

	r := NewSSEReader(strings.NewReader(stream))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", f.Event)
	assert.Equal(t, "1", f.ID)
	assert.Equal(t, `{"type":"RUN_STARTED"}`, string(f.Data))

	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(f.Data))
	assert.Empty(t, f.Event)

	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "no-space", string(f.Data))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEWriterRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	require.NoError(t, w.WriteData([]byte(`{"a":1}`)))
	require.NoError(t, w.WriteData([]byte("multi\nline")))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)

	r := NewSSEReader(rec.Body)
	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(f.Data))
	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "multi\nline", string(f.Data))
}
