// Package submit reconciles a finished draft with the backend: it saves the
// record, then deletes, uploads and reorders photos, then publishes.
//
// Only the record save can fail a submission. Photo operations and
// publication degrade into warnings on an otherwise successful Result.
package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/validate"
	"golang.org/x/sync/errgroup"
)

// DefaultDeleteConcurrency bounds parallel photo deletions.
const DefaultDeleteConcurrency = 4

// Op names a submission operation.
type Op string

const (
	OpValidate Op = "validate"
	OpQuota    Op = "quota"
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpDelete   Op = "delete"
	OpUpload   Op = "upload"
	OpReorder  Op = "reorder"
	OpPublish  Op = "publish"
	OpComplete Op = "complete"
)

// Event reports the outcome of one operation. Err is empty on success.
type Event struct {
	Op        Op        `json:"op"`
	RecordID  string    `json:"record_id,omitempty"`
	PhotoID   string    `json:"photo_id,omitempty"`
	SortOrder int       `json:"sort_order,omitempty"`
	Err       string    `json:"err,omitempty"`
	At        time.Time `json:"at"`
}

// Reporter receives progress events. Implementations must not block for
// long; the journal publishes them to JetStream.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// Result describes a successful submission.
type Result struct {
	RecordID  string    `json:"record_id"`
	Created   bool      `json:"created"`
	Published bool      `json:"published"`
	Uploaded  int       `json:"uploaded"`
	Deleted   int       `json:"deleted"`
	Reordered int       `json:"reordered"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

// Degraded reports whether any sub-operation failed.
func (r *Result) Degraded() bool {
	return len(r.Warnings) > 0
}

// Orchestrator runs submissions against the backend.
type Orchestrator struct {
	records           RecordAPI
	photos            PhotoAPI
	reporter          Reporter
	deleteConcurrency int
	checkQuota        bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter sends progress events to r.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithDeleteConcurrency sets how many deletions may run at once.
func WithDeleteConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.deleteConcurrency = n
		}
	}
}

// WithQuotaCheck asks the backend for the listing allowance before a create.
func WithQuotaCheck(enabled bool) Option {
	return func(o *Orchestrator) { o.checkQuota = enabled }
}

// New creates an Orchestrator.
func New(records RecordAPI, photos PhotoAPI, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		records:           records,
		photos:            photos,
		deleteConcurrency: DefaultDeleteConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reporting returns a copy of o that sends events to r.
func (o *Orchestrator) Reporting(r Reporter) *Orchestrator {
	c := *o
	c.reporter = r
	return &c
}

// Submit reconciles d with the backend. A create is issued when d has no
// RecordID, an update otherwise. Errors are *ValidationError,
// *PreconditionError or *FatalError; everything after the record save is
// reported through Result.Warnings.
func (o *Orchestrator) Submit(ctx context.Context, d draft.Draft) (*Result, error) {
	if failures := validate.Final(d.Flow, d); len(failures) > 0 {
		err := &ValidationError{Failures: failures}
		o.report(ctx, Event{Op: OpValidate, RecordID: d.RecordID, Err: err.Error()})
		return nil, err
	}

	creating := !d.Editing()
	if creating && o.checkQuota {
		if err := o.ensureQuota(ctx); err != nil {
			return nil, err
		}
	}

	res := &Result{RecordID: d.RecordID, Created: creating}

	// 1. Record
	if err := o.saveRecord(ctx, d, res); err != nil {
		return nil, err
	}

	// 2. Deletions
	o.deletePhotos(ctx, res, d.PendingDeletion)

	final := photo.FinalOrder(d.Photos)

	// 3. Uploads, sequential so positions arrive in order
	for _, p := range final {
		if !p.IsNew() {
			continue
		}
		id, err := o.photos.Upload(ctx, res.RecordID, UploadRequest{
			File:      p.Payload,
			Filename:  p.Filename,
			SortOrder: p.Order,
			Tag:       p.Tag,
		})
		if err != nil {
			logger.Warn("Upload of %s failed: %v", p.Filename, err)
			res.Warnings = append(res.Warnings, Warning{Op: OpUpload, PhotoID: p.ID, Filename: p.Filename, Reason: err.Error()})
			o.report(ctx, Event{Op: OpUpload, RecordID: res.RecordID, PhotoID: p.ID, SortOrder: p.Order, Err: err.Error()})
			continue
		}
		res.Uploaded++
		o.report(ctx, Event{Op: OpUpload, RecordID: res.RecordID, PhotoID: id, SortOrder: p.Order})
	}

	// 4. Reorders of retained photos
	for _, p := range final {
		if p.IsNew() || p.Order == p.RemoteOrder {
			continue
		}
		if err := o.photos.Reorder(ctx, res.RecordID, p.ID, p.Order); err != nil {
			logger.Warn("Reorder of photo %s failed: %v", p.ID, err)
			res.Warnings = append(res.Warnings, Warning{Op: OpReorder, PhotoID: p.ID, Reason: err.Error()})
			o.report(ctx, Event{Op: OpReorder, RecordID: res.RecordID, PhotoID: p.ID, SortOrder: p.Order, Err: err.Error()})
			continue
		}
		res.Reordered++
		o.report(ctx, Event{Op: OpReorder, RecordID: res.RecordID, PhotoID: p.ID, SortOrder: p.Order})
	}

	// 5. Publication of new records
	if creating {
		if err := o.records.Publish(ctx, res.RecordID); err != nil {
			logger.Warn("Publishing %s failed: %v", res.RecordID, err)
			res.Warnings = append(res.Warnings, Warning{Op: OpPublish, Reason: err.Error()})
			o.report(ctx, Event{Op: OpPublish, RecordID: res.RecordID, Err: err.Error()})
		} else {
			res.Published = true
			o.report(ctx, Event{Op: OpPublish, RecordID: res.RecordID})
		}
	}

	logger.Info("Submission of %s finished: %d uploaded, %d deleted, %d reordered, %d warnings",
		res.RecordID, res.Uploaded, res.Deleted, res.Reordered, len(res.Warnings))
	o.report(ctx, Event{Op: OpComplete, RecordID: res.RecordID})
	return res, nil
}

func (o *Orchestrator) ensureQuota(ctx context.Context) error {
	q, err := o.records.Quota(ctx)
	if err != nil {
		// The create call carries the same signal, so an unavailable quota
		// endpoint does not block submission.
		logger.Warn("Quota check failed, continuing: %v", err)
		return nil
	}
	if q.Reached() {
		err := &PreconditionError{Err: ErrLimitReached}
		o.report(ctx, Event{Op: OpQuota, Err: err.Error()})
		return err
	}
	return nil
}

func (o *Orchestrator) saveRecord(ctx context.Context, d draft.Draft, res *Result) error {
	payload := d.Payload()
	if res.Created {
		id, err := o.records.Create(ctx, payload)
		if err != nil {
			o.report(ctx, Event{Op: OpCreate, Err: err.Error()})
			if errors.Is(err, ErrLimitReached) {
				return &PreconditionError{Err: err}
			}
			logger.Error("Creating listing failed: %v", err)
			return &FatalError{Op: OpCreate, Err: err}
		}
		res.RecordID = id
		o.report(ctx, Event{Op: OpCreate, RecordID: id})
		return nil
	}

	if err := o.records.Update(ctx, d.RecordID, payload); err != nil {
		logger.Error("Updating listing %s failed: %v", d.RecordID, err)
		o.report(ctx, Event{Op: OpUpdate, RecordID: d.RecordID, Err: err.Error()})
		return &FatalError{Op: OpUpdate, Err: err}
	}
	o.report(ctx, Event{Op: OpUpdate, RecordID: d.RecordID})
	return nil
}

// deletePhotos issues the queued deletions with bounded concurrency.
// Warnings keep the queue order.
func (o *Orchestrator) deletePhotos(ctx context.Context, res *Result, queued []photo.Draft) {
	if len(queued) == 0 {
		return
	}

	failures := make([]error, len(queued))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.deleteConcurrency)

	for i, p := range queued {
		g.Go(func() error {
			err := o.photos.Delete(ctx, res.RecordID, p.ID)
			ev := Event{Op: OpDelete, RecordID: res.RecordID, PhotoID: p.ID}
			if err != nil {
				logger.Warn("Deleting photo %s failed: %v", p.ID, err)
				failures[i] = err
				ev.Err = err.Error()
			}
			mu.Lock()
			o.report(ctx, ev)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range failures {
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Op: OpDelete, PhotoID: queued[i].ID, Reason: err.Error()})
			continue
		}
		res.Deleted++
	}
}

func (o *Orchestrator) report(ctx context.Context, ev Event) {
	if o.reporter == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	o.reporter.Report(ctx, ev)
}
