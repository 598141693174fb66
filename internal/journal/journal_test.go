package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/nats"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/submit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	ctx := context.Background()

	ns, err := nats.StartEmbeddedNATS(t.TempDir())
	require.NoError(t, err)
	nc, err := nats.ConnectInProcess(ns)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nats.Shutdown(nc, ns) })

	js, err := nats.CreateJetStream(nc)
	require.NoError(t, err)
	stream, err := nats.SetupStream(ctx, js)
	require.NoError(t, err)
	return New(js, stream)
}

type okBackend struct {
	publishErr error
}

func (b *okBackend) Create(context.Context, draft.Payload) (string, error) { return "rec-1", nil }
func (b *okBackend) Update(context.Context, string, draft.Payload) error { return nil }
func (b *okBackend) Publish(context.Context, string) error { return b.publishErr }
func (b *okBackend) Get(context.Context, string) (*draft.Record, error) { return nil, nil }
func (b *okBackend) Quota(context.Context) (submit.Quota, error) { return submit.Quota{}, nil }
func (b *okBackend) Upload(_ context.Context, _ string, req submit.UploadRequest) (string, error) {
	return fmt.Sprintf("up-%d", req.SortOrder), nil
}
func (b *okBackend) Delete(context.Context, string, string) error { return nil }
func (b *okBackend) Reorder(context.Context, string, string, int) error { return nil }

func validDraft() draft.Draft {
	d := draft.New(flow.Linear)
	d.Location.City = "Lisbon"
	d.Title = "Flat"
	d.Description = "Nice"
	d.Pricing.Price = 700
	d.Photos, _ = photo.Add(nil, make([]photo.File, 5))
	return d
}

func TestRecorderAndHistory(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)

	backend := &okBackend{publishErr: errors.New("moderation offline")}
	orch := submit.New(backend, backend)

	_, err := orch.Reporting(j.Attempt("draft.alice")).Submit(ctx, validDraft())
	require.NoError(t, err)

	bad := validDraft()
	bad.Title = ""
	_, err = orch.Reporting(j.Attempt("draft.alice")).Submit(ctx, bad)
	require.Error(t, err)

	j.DraftEvent(ctx, "draft.bob", "discarded", "")

	history, err := j.History(ctx, "draft.alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	var ok, failed *Submission
	for _, s := range history {
		switch s.Status {
		case StatusSucceeded:
			ok = s
		case StatusFailed:
			failed = s
		}
	}
	require.NotNil(t, ok)
	require.NotNil(t, failed)

	assert.Equal(t, "rec-1", ok.RecordID)
	assert.True(t, ok.Created)
	assert.False(t, ok.Published)
	assert.Equal(t, 5, ok.Uploaded)
	assert.Equal(t, []string{"publish: moderation offline"}, ok.Warnings)
	assert.Equal(t, "draft-alice", ok.Session)

	assert.Contains(t, failed.Error, "enter a title")

	all, err := j.Events(ctx, "")
	require.NoError(t, err)
	sessions := map[string]bool{}
	for _, ev := range all {
		sessions[ev.Session] = true
	}
	assert.True(t, sessions["draft-bob"])

	limited, err := j.History(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestHistoryOrdering(t *testing.T) {
	h := NewHistory()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, attempt := range []string{"a1", "a2", "a3"} {
		meta := []byte(`{"op":"create","record_id":"r"}`)
		h.Apply(Event{Type: nats.EventTypeSubmit, Attempt: attempt, Timestamp: base.Add(time.Duration(i) * time.Minute), Meta: meta})
	}
	h.Apply(Event{Type: nats.EventTypeDraft, Action: "discarded"})
	h.Apply(Event{Type: nats.EventTypeSubmit, Attempt: "a1", Meta: []byte("broken")})

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "a3", recent[0].Attempt)
	assert.Equal(t, "a2", recent[1].Attempt)
	assert.Equal(t, StatusRunning, recent[0].Status)
}

func TestSessionToken(t *testing.T) {
	assert.Equal(t, "draft-alice", SessionToken("draft.alice"))
	assert.Equal(t, "anonymous", SessionToken("..."))
}
