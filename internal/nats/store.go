package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DraftBucket is the key-value bucket holding draft snapshots.
	DraftBucket = "listr_drafts"

	streamName = "listr_journal"
	retention  = 90 * 24 * time.Hour

	// Event types
	EventTypeSubmit = "submit"
	EventTypeDraft  = "draft"
)

// SubjectForSession returns the wildcard subject for every event of one
// wizard session, e.g. "listr.draft-alice.>".
func SubjectForSession(session string) string {
	return fmt.Sprintf("listr.%s.>", session)
}

// SubjectForEvent returns the subject an event type is published on,
// e.g. "listr.draft-alice.submit".
func SubjectForEvent(session, eventType string) string {
	return fmt.Sprintf("listr.%s.%s", session, eventType)
}

// AllSubjects matches every journal event of every session.
const AllSubjects = "listr.>"

// SetupStream creates or updates the journal stream.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{AllSubjects},
		Storage:  jetstream.FileStorage,
		MaxAge:   retention,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up journal stream: %w", err)
	}
	return stream, nil
}

// SetupDraftBucket creates or updates the snapshot bucket. Only the latest
// revision of each draft is kept.
func SetupDraftBucket(ctx context.Context, js jetstream.JetStream) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      DraftBucket,
		Description: "in-progress listing drafts",
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up draft bucket: %w", err)
	}
	return kv, nil
}
