// Package wizard binds the draft store, step sequencer, validators,
// persistence and submission orchestrator into one authoring session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/hooks"
	"github.com/rentloop/listr/internal/journal"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/photo"
	"github.com/rentloop/listr/internal/submit"
	"github.com/rentloop/listr/internal/validate"
)

var (
	// ErrUnknownPhoto is returned for photo ids that are not part of the draft.
	ErrUnknownPhoto = errors.New("unknown photo")
	// ErrPhotosFull is returned when a photo cannot be restored at capacity.
	ErrPhotosFull = fmt.Errorf("the listing already has %d photos", photo.MaxPhotos)
	// ErrNotModeStep is returned when a flow is chosen away from the Mode step.
	ErrNotModeStep = errors.New("the flow can only be chosen on the mode step")
)

// BlockedError is returned by GoNext when the current step rejects the draft.
type BlockedError struct {
	Step     flow.Step
	Failures []validate.Failure
}

func (e *BlockedError) Error() string {
	return "cannot leave " + string(e.Step) + ": " + validate.Summary(e.Failures)
}

// Config wires a session to its collaborators. Only Orchestrator is
// required for submission; the rest are optional.
type Config struct {
	User         string
	Flow         flow.Flow // create flow used for new drafts
	Snapshots    draft.SnapshotStore
	Orchestrator *submit.Orchestrator
	Journal      *journal.Journal
	Hooks        *hooks.Config
	WorkDir      string
}

// Session is one authoring session. Methods are safe for concurrent use;
// Submit holds the session for the duration of the remote calls.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	key      string
	store    *draft.Store
	previews *photo.Registry
	restored bool
	hookOut  string
}

// New starts a create-mode session, restoring the user's snapshot when one
// exists.
func New(ctx context.Context, cfg Config) (*Session, error) {
	f, err := flow.ParseFlow(string(cfg.Flow))
	if err != nil {
		return nil, err
	}
	if f == flow.Edit {
		return nil, fmt.Errorf("%q is not a create flow", f)
	}
	cfg.Flow = f

	s := newSession(cfg)
	s.restoreSnapshot(ctx)
	return s, nil
}

// restoreSnapshot loads the user's saved create draft, if one exists.
func (s *Session) restoreSnapshot(ctx context.Context) {
	if s.cfg.Snapshots == nil {
		return
	}
	snap, err := s.cfg.Snapshots.Load(ctx, s.key)
	if err != nil {
		// A broken snapshot store must not prevent authoring
		logger.Warn("Loading draft snapshot %s: %v", s.key, err)
		return
	}
	if snap == nil {
		return
	}
	s.store.Load(snap.Restore())
	s.restored = true
	logger.Info("Restored draft %s saved at %s", s.key, snap.SavedAt.Format("2006-01-02 15:04"))
	s.event(ctx, "restored", snap.SavedAt.String())
}

// Edit starts an edit-mode session hydrated from rec. Edit sessions are
// never persisted locally.
func Edit(ctx context.Context, cfg Config, rec *draft.Record) (*Session, error) {
	if rec == nil || rec.ID == "" {
		return nil, errors.New("edit requires a record with an id")
	}
	if cfg.Flow == "" || cfg.Flow == flow.Edit {
		cfg.Flow = flow.Linear
	}
	s := newSession(cfg)
	s.store.Hydrate(rec)
	s.event(ctx, "hydrated", rec.ID)
	return s, nil
}

func newSession(cfg Config) *Session {
	return &Session{
		cfg:      cfg,
		key:      draft.SessionKey(cfg.User),
		store:    draft.NewStore(cfg.Flow),
		previews: photo.NewRegistry(),
	}
}

// Key returns the snapshot key of the session.
func (s *Session) Key() string {
	return s.key
}

// Restored reports whether the session started from a saved snapshot.
func (s *Session) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Draft()
}

// Editing reports whether the session targets an existing record.
func (s *Session) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Draft().Editing()
}

// CurrentStep returns the step the session is on.
func (s *Session) CurrentStep() flow.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Step()
}

// Steps returns the ordering of the active flow.
func (s *Session) Steps() []flow.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flow.Steps(s.store.Draft().Flow)
}

// Blockers returns what keeps the current step from advancing.
func (s *Session) Blockers() []validate.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockers()
}

func (s *Session) blockers() []validate.Failure {
	d := s.store.Draft()
	return validate.Step(d.Flow, d.Step(), d)
}

// CanGoNext reports whether the current step accepts the draft and is not
// the last one.
func (s *Session) CanGoNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.store.Draft()
	return !flow.Last(d.Flow, d.Step()) && len(s.blockers()) == 0
}

// GoNext advances one step. It returns a *BlockedError when the current
// step rejects the draft and is a no-op on the last step.
func (s *Session) GoNext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.store.Draft()
	if failures := s.blockers(); len(failures) > 0 {
		return &BlockedError{Step: d.Step(), Failures: failures}
	}
	next := flow.Next(d.Flow, d.Step())
	if s.store.SetStep(flow.IndexOf(d.Flow, next)) {
		logger.Debug("Step %s -> %s", d.Step(), next)
		s.persist(ctx)
	}
	return nil
}

// GoBack returns to the previous step of the flow. It never validates.
func (s *Session) GoBack(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.store.Draft()
	prev := flow.Prev(d.Flow, d.Step())
	if s.store.SetStep(flow.IndexOf(d.Flow, prev)) {
		logger.Debug("Step %s <- %s", prev, d.Step())
		s.persist(ctx)
	}
}

// ChooseFlow switches the create flow. Only allowed on the Mode step.
func (s *Session) ChooseFlow(ctx context.Context, f flow.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := flow.ParseFlow(string(f))
	if err != nil {
		return err
	}
	if f == flow.Edit || s.store.Draft().Editing() {
		return fmt.Errorf("%q is not a create flow", f)
	}
	if s.store.Step() != flow.StepMode {
		return ErrNotModeStep
	}
	return s.apply(ctx, s.store.SetFlow(f))
}

// SetPropertyType sets the property type.
func (s *Session) SetPropertyType(ctx context.Context, t draft.PropertyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !oneOf(t, draft.PropertyTypes) {
		return fmt.Errorf("unknown property type %q", t)
	}
	return s.apply(ctx, s.store.SetPropertyType(t))
}

// SetRentMode sets the rent mode.
func (s *Session) SetRentMode(ctx context.Context, m draft.RentMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !oneOf(m, draft.RentModes) {
		return fmt.Errorf("unknown rent mode %q", m)
	}
	return s.apply(ctx, s.store.SetRentMode(m))
}

// SetLocation replaces the address.
func (s *Session) SetLocation(ctx context.Context, loc draft.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.store.SetLocation(loc))
}

// SetTitle sets the title.
func (s *Session) SetTitle(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.store.SetTitle(title))
}

// SetDescription sets the description body.
func (s *Session) SetDescription(ctx context.Context, desc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.store.SetDescription(desc))
}

// SetAmenities replaces the amenity set.
func (s *Session) SetAmenities(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.store.SetAmenities(ids))
}

// ToggleAmenity flips one amenity.
func (s *Session) ToggleAmenity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.store.ToggleAmenity(id))
}

// SetPricing replaces the money terms.
func (s *Session) SetPricing(ctx context.Context, p draft.Pricing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Utilities != "" && !oneOf(p.Utilities, draft.UtilityOptions) {
		return fmt.Errorf("unknown utilities option %q", p.Utilities)
	}
	if !validate.Finite(p.Price) || !validate.Finite(p.Deposit) || !validate.Finite(p.Commission) {
		return errors.New("amounts must be finite numbers")
	}
	return s.apply(ctx, s.store.SetPricing(p))
}

// AddPhotos attaches files up to the remaining capacity and returns how
// many were accepted.
func (s *Session) AddPhotos(ctx context.Context, files []photo.File) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.store.Photos()
	if room := photo.Remaining(list); len(files) > room {
		logger.Info("Photo limit reached: %d of %d files accepted", room, len(files))
		files = files[:room]
	}
	if len(files) == 0 {
		return 0, nil
	}
	list, accepted := photo.Add(list, s.previews.Files(files))
	return accepted, s.apply(ctx, s.store.SetPhotos(list))
}

// RemovePhoto drops a photo. Existing photos are queued for remote
// deletion; new ones release their preview. Unknown ids are ignored.
func (s *Session) RemovePhoto(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, removed := photo.Remove(s.store.Photos(), id)
	if removed == nil {
		return nil
	}
	if removed.IsNew() {
		s.previews.Release(removed.URL)
	} else {
		s.store.QueueDeletion(*removed)
	}
	return s.apply(ctx, s.store.SetPhotos(list))
}

// RestorePhoto takes an existing photo back out of the pending deletions
// and appends it to the list.
func (s *Session) RestorePhoto(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.store.Unqueue(id)
	if !ok {
		return fmt.Errorf("%w: %s is not pending deletion", ErrUnknownPhoto, id)
	}
	list, ok := photo.Append(s.store.Photos(), p)
	if !ok {
		s.store.QueueDeletion(p)
		return ErrPhotosFull
	}
	return s.apply(ctx, s.store.SetPhotos(list))
}

// SetCover makes id the cover photo.
func (s *Session) SetCover(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensurePhoto(id); err != nil {
		return err
	}
	return s.apply(ctx, s.store.SetPhotos(photo.SetCover(s.store.Photos(), id)))
}

// SetTag reclassifies a photo.
func (s *Session) SetTag(ctx context.Context, id string, tag photo.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !photo.ValidTag(tag) {
		return fmt.Errorf("unknown photo tag %q", tag)
	}
	if err := s.ensurePhoto(id); err != nil {
		return err
	}
	return s.apply(ctx, s.store.SetPhotos(photo.SetTag(s.store.Photos(), id, tag)))
}

// MovePhoto moves the photo at index from to index to.
func (s *Session) MovePhoto(ctx context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.store.Photos())
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("photo positions must be between 0 and %d", n-1)
	}
	return s.apply(ctx, s.store.SetPhotos(photo.Reorder(s.store.Photos(), from, to)))
}

// Preview returns the local bytes behind a new photo.
func (s *Session) Preview(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.store.Photos() {
		if p.ID == id {
			return s.previews.Lookup(p.URL)
		}
	}
	return nil, false
}

// Submit reconciles the draft with the backend. On success a create draft is
// reset and its snapshot cleared, while an edit hands the session back to
// the user's saved create draft. On failure nothing changes.
func (s *Session) Submit(ctx context.Context) (*submit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Orchestrator == nil {
		return nil, errors.New("submission is not configured")
	}

	orch := s.cfg.Orchestrator
	if s.cfg.Journal != nil {
		rec := s.cfg.Journal.Attempt(s.key)
		logger.Debug("Submission attempt %s for %s", rec.ID(), s.key)
		orch = orch.Reporting(rec)
	}

	d := s.store.Draft()
	res, err := orch.Submit(ctx, d)
	if err != nil {
		logger.Warn("Submission of %s failed: %v", s.key, err)
		s.runHooks(ctx, s.failedHooks(), hooks.Variables{Listing: d.RecordID, Session: s.key, Error: err.Error()})
		return nil, err
	}

	s.store.Reset(s.cfg.Flow)
	s.previews.Reset()
	s.restored = false
	switch {
	case d.Editing():
		// Edits share the key with the user's create draft
		s.restoreSnapshot(ctx)
	case s.cfg.Snapshots != nil:
		if err := s.cfg.Snapshots.Clear(ctx, s.key); err != nil {
			logger.Warn("Clearing draft snapshot %s: %v", s.key, err)
		}
	}
	s.runHooks(ctx, s.postSubmitHooks(), hooks.Variables{
		Listing:  res.RecordID,
		Session:  s.key,
		Warnings: strconv.Itoa(len(res.Warnings)),
	})
	return res, nil
}

// HookOutput returns the piped output of the hooks run by the last Submit.
func (s *Session) HookOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hookOut
}

// Discard drops the draft and its snapshot and starts over. Discarding an
// edit leaves the user's saved create draft alone and continues with it.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	editing := s.store.Draft().Editing()
	s.store.Reset(s.cfg.Flow)
	s.previews.Reset()
	s.restored = false
	s.event(ctx, "discarded", "")
	if editing {
		s.restoreSnapshot(ctx)
		return nil
	}
	if s.cfg.Snapshots == nil {
		return nil
	}
	if err := s.cfg.Snapshots.Clear(ctx, s.key); err != nil {
		return fmt.Errorf("clearing draft snapshot: %w", err)
	}
	return nil
}

// apply persists after a reducer reported a change.
func (s *Session) apply(ctx context.Context, changed bool) error {
	if changed {
		s.persist(ctx)
	}
	return nil
}

// persist saves the snapshot in create mode. Failures are logged; the
// in-memory draft stays authoritative.
func (s *Session) persist(ctx context.Context) {
	d := s.store.Draft()
	if s.cfg.Snapshots == nil || d.Editing() {
		return
	}
	if err := s.cfg.Snapshots.Save(ctx, s.key, draft.NewSnapshot(d)); err != nil {
		logger.Warn("Saving draft snapshot %s: %v", s.key, err)
	}
}

func (s *Session) ensurePhoto(id string) error {
	for _, p := range s.store.Photos() {
		if p.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPhoto, id)
}

func (s *Session) event(ctx context.Context, action, detail string) {
	if s.cfg.Journal != nil {
		s.cfg.Journal.DraftEvent(ctx, s.key, action, detail)
	}
}

func (s *Session) postSubmitHooks() []*hooks.HookConfig {
	if s.cfg.Hooks == nil {
		return nil
	}
	return s.cfg.Hooks.Hooks.PostSubmit
}

func (s *Session) failedHooks() []*hooks.HookConfig {
	if s.cfg.Hooks == nil {
		return nil
	}
	return s.cfg.Hooks.Hooks.SubmitFailed
}

func (s *Session) runHooks(ctx context.Context, list []*hooks.HookConfig, vars hooks.Variables) {
	s.hookOut = ""
	if len(list) == 0 {
		return
	}
	out, err := hooks.ExecuteAllPiped(ctx, list, s.cfg.WorkDir, vars)
	if err != nil {
		logger.Warn("Hooks cancelled: %v", err)
		return
	}
	s.hookOut = out
}

func oneOf[T comparable](v T, set []T) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}
