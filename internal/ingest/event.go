package ingest

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Action classifies an object-store notification.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionRemove
)

// Event is one parsed object notification. HasSize is false for removals
// and for notifications that omit the object size.
type Event struct {
	Action  Action
	Name    string
	Key     string
	Size    int64
	HasSize bool
}

type s3Notification struct {
	Records []s3Record `json:"Records"`
}

type s3Record struct {
	EventName string `json:"eventName"`
	Body      string `json:"body"`
	S3        struct {
		Object struct {
			Key  string `json:"key"`
			Size *int64 `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

var createEvents = map[string]struct{}{
	"ObjectCreated:Put":                     {},
	"ObjectCreated:CompleteMultipartUpload": {},
}

var removeEvents = map[string]struct{}{
	"ObjectRemoved:Delete":              {},
	"ObjectRemoved:DeleteMarkerCreated": {},
}

// ParseEvent decodes an S3-style notification, unwrapping one level of
// queue envelope (a record whose body is itself a notification). Malformed
// payloads and unrecognized event kinds come back as ActionNone, never as an
// error; the caller treats them as a successful no-op.
func ParseEvent(payload []byte) Event {
	var note s3Notification
	if err := json.Unmarshal(payload, &note); err != nil || len(note.Records) == 0 {
		return Event{}
	}
	rec := note.Records[0]
	if rec.EventName == "" && rec.Body != "" {
		var inner s3Notification
		if err := json.Unmarshal([]byte(rec.Body), &inner); err != nil || len(inner.Records) == 0 {
			return Event{}
		}
		rec = inner.Records[0]
	}

	ev := Event{Name: rec.EventName}
	if _, ok := createEvents[rec.EventName]; ok {
		ev.Action = ActionCreate
	} else if _, ok := removeEvents[rec.EventName]; ok {
		ev.Action = ActionRemove
	} else {
		return Event{Name: rec.EventName}
	}

	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil || strings.TrimSpace(key) == "" {
		return Event{Name: rec.EventName}
	}
	ev.Key = key
	if rec.S3.Object.Size != nil {
		ev.Size = *rec.S3.Object.Size
		ev.HasSize = true
	}
	return ev
}
