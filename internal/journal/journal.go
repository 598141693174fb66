// Package journal keeps an append-only JetStream log of submission progress
// and reduces it into a submission history.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gosimple/slug"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/nats"
	"github.com/rentloop/listr/internal/submit"
	"github.com/rs/xid"
)

// Event is one entry of the journal.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Session   string          `json:"session"`
	Type      string          `json:"type"`   // submit, draft
	Action    string          `json:"action"` // submission op, or restored/discarded for drafts
	Attempt   string          `json:"attempt,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	Data      string          `json:"data"`
}

// Journal publishes and reads journal events.
type Journal struct {
	js     jetstream.JetStream
	stream jetstream.Stream
}

// New creates a Journal over a stream set up by nats.SetupStream.
func New(js jetstream.JetStream, stream jetstream.Stream) *Journal {
	return &Journal{js: js, stream: stream}
}

// SessionToken turns a session key into a subject-safe token.
func SessionToken(session string) string {
	if s := slug.Make(session); s != "" {
		return s
	}
	return "anonymous"
}

// Publish appends an event.
func (j *Journal) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = xid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Session = SessionToken(event.Session)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling journal event: %w", err)
	}

	subject := nats.SubjectForEvent(event.Session, event.Type)
	ack, err := j.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("publishing journal event: %w", err)
	}
	logger.Debug("Journal event %s/%s published (seq=%d)", event.Type, event.Action, ack.Sequence)
	return nil
}

// DraftEvent records a draft lifecycle change such as a restore or discard.
func (j *Journal) DraftEvent(ctx context.Context, session, action, detail string) {
	if err := j.Publish(ctx, Event{Session: session, Type: nats.EventTypeDraft, Action: action, Data: detail}); err != nil {
		logger.Warn("Journal: %v", err)
	}
}

// Attempt returns a reporter that files every event of one submission
// under a fresh attempt id.
func (j *Journal) Attempt(session string) *Recorder {
	return &Recorder{journal: j, session: session, attempt: xid.New().String()}
}

// Recorder implements submit.Reporter for one submission attempt.
type Recorder struct {
	journal *Journal
	session string
	attempt string
}

// ID returns the attempt id.
func (r *Recorder) ID() string {
	return r.attempt
}

// Report publishes ev. Journal failures are logged and never affect the
// submission.
func (r *Recorder) Report(ctx context.Context, ev submit.Event) {
	meta, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("Journal: marshaling submit event: %v", err)
		return
	}
	err = r.journal.Publish(ctx, Event{
		Timestamp: ev.At,
		Session:   r.session,
		Type:      nats.EventTypeSubmit,
		Action:    string(ev.Op),
		Attempt:   r.attempt,
		Meta:      meta,
		Data:      ev.RecordID,
	})
	if err != nil {
		logger.Warn("Journal: %v", err)
	}
}

// Events reads every event of session, or of all sessions when session is
// empty, in publication order.
func (j *Journal) Events(ctx context.Context, session string) ([]Event, error) {
	filter := nats.AllSubjects
	if session != "" {
		filter = nats.SubjectForSession(SessionToken(session))
	}

	consumer, err := j.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject:     filter,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("creating journal consumer: %w", err)
	}

	const batchSize = 500
	var events []Event
	malformed := 0
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		n := 0
		for msg := range msgs.Messages() {
			n++
			var ev Event
			if err := json.Unmarshal(msg.Data(), &ev); err != nil {
				malformed++
				_ = msg.Ack()
				continue
			}
			events = append(events, ev)
			_ = msg.Ack()
		}

		if n < batchSize {
			break
		}
	}

	if malformed > 0 {
		logger.Warn("Skipped %d malformed journal events", malformed)
	}
	return events, nil
}

// History reduces the journal into submissions, newest first. A limit of
// zero returns everything.
func (j *Journal) History(ctx context.Context, session string, limit int) ([]*Submission, error) {
	events, err := j.Events(ctx, session)
	if err != nil {
		return nil, err
	}

	h := NewHistory()
	for _, ev := range events {
		h.Apply(ev)
	}
	return h.Recent(limit), nil
}

// Status of a submission attempt.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Submission is the reduced view of one attempt.
type Submission struct {
	Attempt    string    `json:"attempt"`
	Session    string    `json:"session"`
	RecordID   string    `json:"record_id,omitempty"`
	Status     Status    `json:"status"`
	Created    bool      `json:"created"`
	Published  bool      `json:"published"`
	Uploaded   int       `json:"uploaded"`
	Deleted    int       `json:"deleted"`
	Reordered  int       `json:"reordered"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// History is the reducer state: attempts by id.
type History struct {
	attempts map[string]*Submission
}

// NewHistory creates an empty reducer.
func NewHistory() *History {
	return &History{attempts: make(map[string]*Submission)}
}

// Apply folds one event into the history. Draft events are ignored.
func (h *History) Apply(event Event) {
	if event.Type != nats.EventTypeSubmit || event.Attempt == "" {
		return
	}

	var ev submit.Event
	if err := json.Unmarshal(event.Meta, &ev); err != nil {
		return
	}

	s, ok := h.attempts[event.Attempt]
	if !ok {
		s = &Submission{
			Attempt:   event.Attempt,
			Session:   event.Session,
			Status:    StatusRunning,
			StartedAt: event.Timestamp,
		}
		h.attempts[event.Attempt] = s
	}
	if ev.RecordID != "" {
		s.RecordID = ev.RecordID
	}

	failed := ev.Err != ""
	switch ev.Op {
	case submit.OpValidate, submit.OpQuota, submit.OpUpdate:
		if failed {
			s.fail(ev, event.Timestamp)
		}
	case submit.OpCreate:
		if failed {
			s.fail(ev, event.Timestamp)
		} else {
			s.Created = true
		}
	case submit.OpDelete:
		s.count(&s.Deleted, ev)
	case submit.OpUpload:
		s.count(&s.Uploaded, ev)
	case submit.OpReorder:
		s.count(&s.Reordered, ev)
	case submit.OpPublish:
		if failed {
			s.warn(ev)
		} else {
			s.Published = true
		}
	case submit.OpComplete:
		s.Status = StatusSucceeded
		s.FinishedAt = event.Timestamp
	}
}

func (s *Submission) fail(ev submit.Event, at time.Time) {
	s.Status = StatusFailed
	s.Error = ev.Err
	s.FinishedAt = at
}

func (s *Submission) warn(ev submit.Event) {
	w := fmt.Sprintf("%s: %s", ev.Op, ev.Err)
	if ev.PhotoID != "" {
		w = fmt.Sprintf("%s %s: %s", ev.Op, ev.PhotoID, ev.Err)
	}
	s.Warnings = append(s.Warnings, w)
}

func (s *Submission) count(n *int, ev submit.Event) {
	if ev.Err != "" {
		s.warn(ev)
		return
	}
	*n++
}

// Recent returns up to limit submissions, newest first.
func (h *History) Recent(limit int) []*Submission {
	out := make([]*Submission, 0, len(h.attempts))
	for _, s := range h.attempts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].Attempt > out[k].Attempt
		}
		return out[i].StartedAt.After(out[k].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
