package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventCreate(t *testing.T) {
	payload := []byte(`{"Records":[{"eventName":"ObjectCreated:Put","s3":{"object":{"key":"docs/report.pdf","size":1234}}}]}`)
	ev := ParseEvent(payload)
	assert.Equal(t, ActionCreate, ev.Action)
	assert.Equal(t, "docs/report.pdf", ev.Key)
	assert.Equal(t, int64(1234), ev.Size)
	assert.True(t, ev.HasSize)
}

func TestParseEventMultipart(t *testing.T) {
	payload := []byte(`{"Records":[{"eventName":"ObjectCreated:CompleteMultipartUpload","s3":{"object":{"key":"big.docx","size":99}}}]}`)
	ev := ParseEvent(payload)
	assert.Equal(t, ActionCreate, ev.Action)
}

func TestParseEventRemove(t *testing.T) {
	for _, name := range []string{"ObjectRemoved:Delete", "ObjectRemoved:DeleteMarkerCreated"} {
		payload := []byte(`{"Records":[{"eventName":"` + name + `","s3":{"object":{"key":"gone.md"}}}]}`)
		ev := ParseEvent(payload)
		assert.Equal(t, ActionRemove, ev.Action, name)
		assert.Equal(t, "gone.md", ev.Key)
		assert.False(t, ev.HasSize)
	}
}

func TestParseEventQueueEnvelope(t *testing.T) {
	inner := `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"object":{"key":"wrapped.md","size":10}}}]}`
	outer, err := json.Marshal(map[string]interface{}{
		"Records": []map[string]interface{}{{"body": inner}},
	})
	require.NoError(t, err)

	ev := ParseEvent(outer)
	assert.Equal(t, ActionCreate, ev.Action)
	assert.Equal(t, "wrapped.md", ev.Key)
}

func TestParseEventKeyUnescaped(t *testing.T) {
	payload := []byte(`{"Records":[{"eventName":"ObjectCreated:Put","s3":{"object":{"key":"my+folder/a%20file.md","size":1}}}]}`)
	ev := ParseEvent(payload)
	assert.Equal(t, "my folder/a file.md", ev.Key)
}

func TestParseEventUnknownKind(t *testing.T) {
	payload := []byte(`{"Records":[{"eventName":"ObjectRestore:Completed","s3":{"object":{"key":"x.md"}}}]}`)
	ev := ParseEvent(payload)
	assert.Equal(t, ActionNone, ev.Action)
	assert.Equal(t, "ObjectRestore:Completed", ev.Name)
	assert.Empty(t, ev.Key)
}

func TestParseEventMalformed(t *testing.T) {
	for _, payload := range []string{
		"",
		"not json",
		"{}",
		`{"Records":[]}`,
		`{"Records":[{"eventName":"ObjectCreated:Put","s3":{"object":{"key":""}}}]}`,
		`{"Records":[{"body":"not json either"}]}`,
	} {
		ev := ParseEvent([]byte(payload))
		assert.Equal(t, ActionNone, ev.Action, payload)
	}
}
