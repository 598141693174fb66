package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/photo"
)

// SnapshotVersion is bumped whenever the snapshot layout changes in a way
// older readers cannot handle.
const SnapshotVersion = 1

// Snapshot is the durable form of a draft. Photo payloads are never part of
// it.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Draft   Draft     `json:"draft"`
}

// NewSnapshot captures d for persistence.
func NewSnapshot(d Draft) *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		Draft:   d.Clone(),
	}
}

// Restore rebuilds the draft. New photos are dropped because their bytes did
// not survive the session; the cover moves to the first remaining photo when
// needed.
func (s *Snapshot) Restore() Draft {
	d := s.Draft.Clone()
	for _, p := range d.NewPhotos() {
		d.Photos, _ = photo.Remove(d.Photos, p.ID)
	}
	if d.Flow == "" {
		d.Flow = flow.Linear
	}
	d.StepIndex = flow.Clamp(d.Flow, d.StepIndex)
	return d
}

// SessionKey derives the snapshot key for a user.
func SessionKey(user string) string {
	s := slug.Make(user)
	if s == "" {
		s = "anonymous"
	}
	return "draft." + s
}

// SnapshotStore persists snapshots by key.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap *Snapshot) error
	// Load returns nil without error when no snapshot exists.
	Load(ctx context.Context, key string) (*Snapshot, error)
	Clear(ctx context.Context, key string) error
}

// Encode serialises a snapshot.
func Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot, rejecting versions this build cannot read.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	return &snap, nil
}

// KVStore keeps snapshots in a JetStream key-value bucket.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore wraps a bucket created by nats.SetupDraftBucket.
func NewKVStore(kv jetstream.KeyValue) *KVStore {
	return &KVStore{kv: kv}
}

// Save writes the snapshot under key.
func (s *KVStore) Save(ctx context.Context, key string, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	rev, err := s.kv.Put(ctx, key, data)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	logger.Debug("Snapshot %s saved (revision %d, %d bytes)", key, rev, len(data))
	return nil
}

// Load reads the snapshot under key.
func (s *KVStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return Decode(entry.Value())
}

// Clear deletes the snapshot under key. Missing keys are not an error.
func (s *KVStore) Clear(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("clearing snapshot %s: %w", key, err)
	}
	logger.Debug("Snapshot %s cleared", key)
	return nil
}
