package submit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every call in order and fails the ones configured.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	quota    Quota
	quotaErr error
	fail     map[string]error
	nextID   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fail: map[string]error{}}
}

func (f *fakeBackend) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Create(_ context.Context, p draft.Payload) (string, error) {
	if err := f.record("create"); err != nil {
		return "", err
	}
	return "rec-1", nil
}

func (f *fakeBackend) Update(_ context.Context, id string, _ draft.Payload) error {
	return f.record("update " + id)
}

func (f *fakeBackend) Publish(_ context.Context, id string) error {
	return f.record("publish " + id)
}

func (f *fakeBackend) Get(_ context.Context, id string) (*draft.Record, error) {
	return nil, f.record("get " + id)
}

func (f *fakeBackend) Quota(context.Context) (Quota, error) {
	_ = f.record("quota")
	return f.quota, f.quotaErr
}

func (f *fakeBackend) Upload(_ context.Context, recordID string, req UploadRequest) (string, error) {
	if err := f.record(fmt.Sprintf("upload %s %s@%d", recordID, req.Filename, req.SortOrder)); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("up-%d", f.nextID), nil
}

func (f *fakeBackend) Delete(_ context.Context, recordID, photoID string) error {
	return f.record(fmt.Sprintf("delete %s %s", recordID, photoID))
}

func (f *fakeBackend) Reorder(_ context.Context, recordID, photoID string, sortOrder int) error {
	return f.record(fmt.Sprintf("reorder %s %s@%d", recordID, photoID, sortOrder))
}

type recordingReporter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingReporter) Report(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func newFiles(n int) []photo.File {
	out := make([]photo.File, n)
	for i := range out {
		out[i] = photo.File{Name: fmt.Sprintf("img%d.jpg", i), Data: []byte{byte(i)}, Preview: fmt.Sprintf("preview://%d", i)}
	}
	return out
}

func createDraft(photos int) draft.Draft {
	d := draft.New(flow.Linear)
	d.Location.City = "Lisbon"
	d.Title = "Sunny flat"
	d.Pricing.Price = 1200
	d.Photos, _ = photo.Add(nil, newFiles(photos))
	return d
}

func editDraft() draft.Draft {
	return editDraftWithOrders(0, 1, 2, 3, 4, 5)
}

// editDraftWithOrders hydrates a record whose photo p<i> carries the i-th
// remote sort order.
func editDraftWithOrders(orders ...int) draft.Draft {
	rec := &draft.Record{
		ID: "rec-9",
		Payload: draft.Payload{
			Location:    draft.Location{City: "Porto"},
			Title:       "Old flat",
			Description: "Needs an update",
			Pricing:     draft.Pricing{Price: 800},
		},
	}
	for i, order := range orders {
		rec.Photos = append(rec.Photos, draft.RemotePhoto{ID: fmt.Sprintf("p%d", i), URL: "https://cdn/x.jpg", SortOrder: order})
	}
	return draft.FromRecord(rec)
}

func TestSubmitCreateScenario(t *testing.T) {
	d := createDraft(6)
	d.Photos = photo.SetCover(d.Photos, d.Photos[3].ID)

	backend := newFakeBackend()
	reporter := &recordingReporter{}
	res, err := New(backend, backend, WithReporter(reporter)).Submit(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create",
		"upload rec-1 img3.jpg@0",
		"upload rec-1 img0.jpg@1",
		"upload rec-1 img1.jpg@2",
		"upload rec-1 img2.jpg@3",
		"upload rec-1 img4.jpg@4",
		"upload rec-1 img5.jpg@5",
		"publish rec-1",
	}, backend.Calls())

	assert.Equal(t, "rec-1", res.RecordID)
	assert.True(t, res.Created)
	assert.True(t, res.Published)
	assert.Equal(t, 6, res.Uploaded)
	assert.False(t, res.Degraded())

	require.NotEmpty(t, reporter.events)
	assert.Equal(t, OpCreate, reporter.events[0].Op)
	assert.Equal(t, OpComplete, reporter.events[len(reporter.events)-1].Op)
}

func TestSubmitEditScenario(t *testing.T) {
	// Four hydrated photos; the second is removed and the rest reordered
	d := editDraftWithOrders(0, 1, 2, 3)
	var removed *photo.Draft
	d.Photos, removed = photo.Remove(d.Photos, "p1")
	require.NotNil(t, removed)
	d.PendingDeletion = append(d.PendingDeletion, *removed)
	d.Photos = photo.Reorder(d.Photos, 2, 0)
	d.Photos = photo.SetCover(d.Photos, "p3")

	backend := newFakeBackend()
	res, err := New(backend, backend).Submit(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"update rec-9",
		"delete rec-9 p1",
		"reorder rec-9 p3@0",
		"reorder rec-9 p0@1",
	}, backend.Calls(), "p2 stays at its hydrated position and edits never publish")

	assert.False(t, res.Created)
	assert.False(t, res.Published)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 2, res.Reordered)
}

func TestSubmitEditSparseRemoteOrders(t *testing.T) {
	tests := []struct {
		name   string
		orders []int
	}{
		{"one based", []int{1, 2, 3, 4, 5}},
		{"sparse", []int{10, 20, 30, 40}},
		{"unsorted", []int{7, 3, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			res, err := New(backend, backend).Submit(context.Background(), editDraftWithOrders(tt.orders...))
			require.NoError(t, err)
			assert.Equal(t, []string{"update rec-9"}, backend.Calls())
			assert.Zero(t, res.Reordered)
		})
	}
}

func TestSubmitEditWithNewPhoto(t *testing.T) {
	d := editDraft()
	var removed *photo.Draft
	d.Photos, removed = photo.Remove(d.Photos, "p1")
	require.NotNil(t, removed)
	d.PendingDeletion = append(d.PendingDeletion, *removed)
	d.Photos, _ = photo.Add(d.Photos, newFiles(1))
	d.Photos = photo.SetCover(d.Photos, "p3")

	backend := newFakeBackend()
	res, err := New(backend, backend).Submit(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"update rec-9",
		"delete rec-9 p1",
		"upload rec-9 img0.jpg@5",
		"reorder rec-9 p3@0",
		"reorder rec-9 p0@1",
		"reorder rec-9 p4@3",
		"reorder rec-9 p5@4",
	}, backend.Calls(), "no publish in edit mode and p2 keeps its position")

	assert.False(t, res.Created)
	assert.False(t, res.Published)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 4, res.Reordered)
}

func TestSubmitValidationFailureMakesNoCalls(t *testing.T) {
	d := createDraft(2)
	d.Location.City = ""

	backend := newFakeBackend()
	_, err := New(backend, backend, WithQuotaCheck(true)).Submit(context.Background(), d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Failures, 2)
	assert.Empty(t, backend.Calls())
}

func TestSubmitRejectsNonFinitePrice(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		d := createDraft(5)
		d.Pricing.Price = v

		backend := newFakeBackend()
		_, err := New(backend, backend).Submit(context.Background(), d)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "price %v", v)
		assert.Empty(t, backend.Calls())
	}
}

func TestSubmitLimitReached(t *testing.T) {
	t.Run("quota check refuses before create", func(t *testing.T) {
		backend := newFakeBackend()
		backend.quota = Quota{Used: 3, Limit: 3}

		_, err := New(backend, backend, WithQuotaCheck(true)).Submit(context.Background(), createDraft(5))
		var perr *PreconditionError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, ErrLimitReached)
		assert.Equal(t, []string{"quota"}, backend.Calls())
	})

	t.Run("create answered with the limit signal", func(t *testing.T) {
		backend := newFakeBackend()
		backend.fail["create"] = fmt.Errorf("402 payment required: %w", ErrLimitReached)

		_, err := New(backend, backend).Submit(context.Background(), createDraft(5))
		var perr *PreconditionError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, []string{"create"}, backend.Calls())
	})

	t.Run("unavailable quota does not block", func(t *testing.T) {
		backend := newFakeBackend()
		backend.quotaErr = errors.New("503")

		res, err := New(backend, backend, WithQuotaCheck(true)).Submit(context.Background(), createDraft(5))
		require.NoError(t, err)
		assert.True(t, res.Published)
	})

	t.Run("edit mode skips the quota", func(t *testing.T) {
		backend := newFakeBackend()
		backend.quota = Quota{Used: 3, Limit: 3}

		_, err := New(backend, backend, WithQuotaCheck(true)).Submit(context.Background(), editDraft())
		require.NoError(t, err)
		assert.NotContains(t, backend.Calls(), "quota")
	})
}

func TestSubmitFatalAbortsBeforePhotos(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["create"] = errors.New("title contains forbidden words")

	_, err := New(backend, backend).Submit(context.Background(), createDraft(5))
	var ferr *FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "title contains forbidden words", err.Error(), "reason carried verbatim")
	assert.Equal(t, OpCreate, ferr.Op)
	assert.Equal(t, []string{"create"}, backend.Calls())

	backend = newFakeBackend()
	backend.fail["update rec-9"] = errors.New("conflict")
	_, err = New(backend, backend).Submit(context.Background(), editDraft())
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, OpUpdate, ferr.Op)
}

func TestSubmitDegraded(t *testing.T) {
	d := editDraft()
	for _, id := range []string{"p4", "p5"} {
		var removed *photo.Draft
		d.Photos, removed = photo.Remove(d.Photos, id)
		d.PendingDeletion = append(d.PendingDeletion, *removed)
	}
	d.Photos, _ = photo.Add(d.Photos, newFiles(2))

	backend := newFakeBackend()
	backend.fail["delete rec-9 p4"] = errors.New("gone")
	backend.fail["upload rec-9 img1.jpg@5"] = errors.New("too large")

	res, err := New(backend, backend, WithDeleteConcurrency(1)).Submit(context.Background(), d)
	require.NoError(t, err)
	require.True(t, res.Degraded())
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, OpDelete, res.Warnings[0].Op)
	assert.Equal(t, "p4", res.Warnings[0].PhotoID)
	assert.Equal(t, OpUpload, res.Warnings[1].Op)
	assert.Equal(t, "upload img1.jpg: too large", res.Warnings[1].String())
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.Uploaded)
}

func TestSubmitPublishFailureIsAWarning(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["publish rec-1"] = errors.New("moderation queue full")

	res, err := New(backend, backend).Submit(context.Background(), createDraft(5))
	require.NoError(t, err)
	assert.Equal(t, "rec-1", res.RecordID)
	assert.False(t, res.Published)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, OpPublish, res.Warnings[0].Op)
}

func TestSubmitDeletesConcurrently(t *testing.T) {
	d := editDraft()
	for _, p := range d.Photos[:5] {
		d.PendingDeletion = append(d.PendingDeletion, p)
	}
	d.Photos = d.Photos[5:]
	d.Photos[0].Cover = true
	d.Photos, _ = photo.Add(d.Photos, newFiles(4))

	backend := newFakeBackend()
	res, err := New(backend, backend).Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Deleted)

	calls := backend.Calls()
	assert.Equal(t, "update rec-9", calls[0])
	assert.ElementsMatch(t, []string{
		"delete rec-9 p0", "delete rec-9 p1", "delete rec-9 p2", "delete rec-9 p3", "delete rec-9 p4",
	}, calls[1:6])
	assert.Equal(t, "upload rec-9 img0.jpg@1", calls[6], "uploads start after every delete")
}
