// Package app wires the embedded NATS server, the snapshot store, the HTTP
// adapter and the submission orchestrator into wizard sessions.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rentloop/listr/internal/api"
	"github.com/rentloop/listr/internal/config"
	"github.com/rentloop/listr/internal/draft"
	ierr "github.com/rentloop/listr/internal/errors"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/hooks"
	"github.com/rentloop/listr/internal/journal"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/nats"
	"github.com/rentloop/listr/internal/state"
	"github.com/rentloop/listr/internal/submit"
	"github.com/rentloop/listr/internal/tui"
	"github.com/rentloop/listr/internal/wizard"
)

// Config holds configuration for the runtime.
type Config struct {
	DataDir           string        // Data directory for NATS storage and file snapshots
	WorkDir           string        // Directory hooks run in
	User              string        // Default user for session keys
	Flow              flow.Flow     // Default create flow
	SnapshotBackend   string        // config.BackendNATS or config.BackendFile
	ReviewTemplate    string        // Path to a custom review template (optional)
	APIURL            string        // Backend base URL
	APIToken          string        // Bearer token (optional)
	RequestTimeout    time.Duration // Per-request timeout of the HTTP adapter
	DeleteConcurrency int           // Parallel photo deletions
	QuotaCheck        bool          // Ask the backend for the listing quota before creating

	// Records and Photos replace the HTTP adapter when set.
	Records submit.RecordAPI
	Photos  submit.PhotoAPI
}

// FromConfig maps loaded configuration onto a runtime Config.
func FromConfig(c *config.Config) Config {
	return Config{
		DataDir:           c.DataDir,
		User:              c.User,
		Flow:              flow.Flow(c.DefaultFlow),
		SnapshotBackend:   c.SnapshotBackend,
		ReviewTemplate:    c.ReviewTemplate,
		APIURL:            c.APIURL,
		APIToken:          c.APIToken,
		RequestTimeout:    c.RequestTimeout,
		DeleteConcurrency: c.DeleteConcurrency,
		QuotaCheck:        true,
	}
}

// App owns the long-lived collaborators shared by wizard sessions.
type App struct {
	cfg       Config
	ns        *natsserver.Server
	nc        *natsgo.Conn
	journal   *journal.Journal
	snapshots draft.SnapshotStore
	records   submit.RecordAPI
	orch      *submit.Orchestrator
	hooks     *hooks.Config
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	stopped   bool
}

// New creates an App. Call Start before opening sessions.
func New(cfg Config) (*App, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = ".listr"
	}
	if cfg.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.WorkDir = wd
	}
	if cfg.SnapshotBackend == "" {
		cfg.SnapshotBackend = config.BackendNATS
	}
	if cfg.Records == nil || cfg.Photos == nil {
		if cfg.APIURL == "" {
			return nil, errors.New("api_url is required")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{cfg: cfg, ctx: ctx, cancel: cancel}, nil
}

// Start brings up NATS, the journal, the snapshot store and the
// orchestrator.
func (a *App) Start() error {
	logger.Info("Starting listr runtime (data: %s)", a.cfg.DataDir)

	// 1. Embedded NATS
	logger.Debug("Starting embedded NATS")
	if err := a.startNATS(); err != nil {
		logger.Error("Failed to start NATS: %v", err)
		return fmt.Errorf("failed to start NATS: %w", err)
	}

	// 2. Journal stream and snapshot store
	logger.Debug("Setting up JetStream")
	if err := a.setupJetStream(); err != nil {
		logger.Error("Failed to setup JetStream: %v", err)
		_ = a.Stop()
		return fmt.Errorf("failed to setup JetStream: %w", err)
	}

	// 3. Backend adapter and orchestrator
	records, photos := a.cfg.Records, a.cfg.Photos
	if records == nil || photos == nil {
		client := api.New(api.Config{
			BaseURL: a.cfg.APIURL,
			Token:   a.cfg.APIToken,
			Timeout: a.cfg.RequestTimeout,
		})
		if records == nil {
			records = client
		}
		if photos == nil {
			photos = client
		}
	}
	a.records = records
	a.orch = submit.New(records, photos,
		submit.WithDeleteConcurrency(a.cfg.DeleteConcurrency),
		submit.WithQuotaCheck(a.cfg.QuotaCheck),
	)

	// 4. Hooks are optional; a broken file only disables them
	hooksCfg, err := hooks.LoadConfig(a.cfg.WorkDir)
	if err != nil {
		logger.Warn("Hooks disabled: %v", err)
	}
	a.hooks = hooksCfg

	a.started = true
	logger.Info("Runtime started")
	return nil
}

func (a *App) startNATS() error {
	ns, err := nats.StartEmbeddedNATS(filepath.Join(a.cfg.DataDir, "nats"))
	if err != nil {
		return err
	}
	nc, err := nats.ConnectInProcess(ns)
	if err != nil {
		ns.Shutdown()
		return err
	}
	a.ns = ns
	a.nc = nc
	return nil
}

func (a *App) setupJetStream() error {
	js, err := nats.CreateJetStream(a.nc)
	if err != nil {
		return err
	}
	stream, err := nats.SetupStream(a.ctx, js)
	if err != nil {
		return err
	}
	a.journal = journal.New(js, stream)

	switch a.cfg.SnapshotBackend {
	case config.BackendFile:
		a.snapshots = state.NewFileStore(a.cfg.DataDir)
	case config.BackendNATS:
		kv, err := nats.SetupDraftBucket(a.ctx, js)
		if err != nil {
			return err
		}
		a.snapshots = draft.NewKVStore(kv)
	default:
		return fmt.Errorf("unknown snapshot backend %q", a.cfg.SnapshotBackend)
	}
	return nil
}

// Journal returns the submission journal.
func (a *App) Journal() *journal.Journal {
	return a.journal
}

// ReviewTemplate returns the configured review template path.
func (a *App) ReviewTemplate() string {
	return a.cfg.ReviewTemplate
}

func (a *App) sessionConfig(user string, f flow.Flow) wizard.Config {
	if user == "" {
		user = a.cfg.User
	}
	if f == "" {
		f = a.cfg.Flow
	}
	return wizard.Config{
		User:         user,
		Flow:         f,
		Snapshots:    a.snapshots,
		Orchestrator: a.orch,
		Journal:      a.journal,
		Hooks:        a.hooks,
		WorkDir:      a.cfg.WorkDir,
	}
}

// NewSession opens a create-mode session for user, restoring their saved
// draft. Empty arguments fall back to the configured defaults.
func (a *App) NewSession(ctx context.Context, user string, f flow.Flow) (*wizard.Session, error) {
	if !a.started {
		return nil, errors.New("runtime not started")
	}
	return wizard.New(ctx, a.sessionConfig(user, f))
}

// EditSession fetches listing id and opens an edit-mode session for it.
func (a *App) EditSession(ctx context.Context, user, id string) (*wizard.Session, error) {
	if !a.started {
		return nil, errors.New("runtime not started")
	}
	rec, err := a.records.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("listing %s not found", id)
	}
	return wizard.Edit(ctx, a.sessionConfig(user, ""), rec)
}

// History returns the recent submissions of user, newest first.
func (a *App) History(ctx context.Context, user string, limit int) ([]*journal.Submission, error) {
	if !a.started {
		return nil, errors.New("runtime not started")
	}
	if user == "" {
		user = a.cfg.User
	}
	return a.journal.History(ctx, draft.SessionKey(user), limit)
}

// RunShell runs the terminal wizard for s until the user quits.
func (a *App) RunShell(ctx context.Context, s *wizard.Session, opts ...tui.Option) (*submit.Result, error) {
	var res *submit.Result
	err := ierr.Recover(func() error {
		var err error
		res, err = tui.Run(ctx, s, a.cfg.ReviewTemplate, opts...)
		return err
	})
	var panicErr *ierr.PanicError
	if errors.As(err, &panicErr) {
		logger.Error("Wizard panicked with stack trace: %s", panicErr.StackTrace)
	}
	return res, err
}

// Stop shuts down all components. It collects errors from each component and
// returns a combined error if any fail. Multiple calls are safe.
func (a *App) Stop() error {
	if a.stopped {
		return nil
	}
	a.stopped = true

	logger.Info("Stopping listr runtime")
	multiErr := &ierr.MultiError{}

	if a.cancel != nil {
		a.cancel()
	}

	if err := nats.Shutdown(a.nc, a.ns); err != nil {
		logger.Error("NATS shutdown failed: %v", err)
		multiErr.Append(fmt.Errorf("NATS shutdown failed: %w", err))
	}
	a.nc = nil
	a.ns = nil

	logger.Info("Runtime stopped")
	return multiErr.ErrorOrNil()
}
