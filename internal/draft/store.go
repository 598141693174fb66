package draft

import (
	"reflect"
	"sort"
	"strings"

	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
)

// Store is the single container of draft state. Every mutating method
// reports whether the draft changed and none of them perform I/O.
// A Store is owned by one session and is not safe for concurrent use.
type Store struct {
	d Draft
}

// NewStore creates a store holding an empty draft for flow f.
func NewStore(f flow.Flow) *Store {
	return &Store{d: New(f)}
}

// Draft returns a copy of the current state.
func (s *Store) Draft() Draft {
	return s.d.Clone()
}

// Photos returns a copy of the photo list.
func (s *Store) Photos() []photo.Draft {
	return append([]photo.Draft(nil), s.d.Photos...)
}

// Step returns the current step.
func (s *Store) Step() flow.Step {
	return s.d.Step()
}

// SetFlow switches the authoring flow while keeping the step index.
func (s *Store) SetFlow(f flow.Flow) bool {
	if s.d.Flow == f {
		return false
	}
	s.d.Flow = f
	s.d.StepIndex = flow.Clamp(f, s.d.StepIndex)
	return true
}

// SetStep moves to index i, clamped to the flow.
func (s *Store) SetStep(i int) bool {
	i = flow.Clamp(s.d.Flow, i)
	if s.d.StepIndex == i {
		return false
	}
	s.d.StepIndex = i
	return true
}

func (s *Store) SetPropertyType(t PropertyType) bool {
	if s.d.PropertyType == t {
		return false
	}
	s.d.PropertyType = t
	return true
}

func (s *Store) SetRentMode(m RentMode) bool {
	if s.d.RentMode == m {
		return false
	}
	s.d.RentMode = m
	return true
}

// SetLocation replaces the whole address. Text fields are trimmed.
func (s *Store) SetLocation(loc Location) bool {
	loc.City = strings.TrimSpace(loc.City)
	loc.District = strings.TrimSpace(loc.District)
	loc.Street = strings.TrimSpace(loc.Street)
	loc.Building = strings.TrimSpace(loc.Building)
	if reflect.DeepEqual(s.d.Location, loc) {
		return false
	}
	s.d.Location = loc
	return true
}

func (s *Store) SetTitle(title string) bool {
	if s.d.Title == title {
		return false
	}
	s.d.Title = title
	return true
}

func (s *Store) SetDescription(desc string) bool {
	if s.d.Description == desc {
		return false
	}
	s.d.Description = desc
	return true
}

// SetAmenities replaces the amenity set.
func (s *Store) SetAmenities(ids []string) bool {
	next := normalizeAmenities(ids)
	if reflect.DeepEqual(s.d.Amenities, next) {
		return false
	}
	s.d.Amenities = next
	return true
}

// ToggleAmenity adds id when absent and removes it otherwise.
func (s *Store) ToggleAmenity(id string) bool {
	id = normalizeAmenity(id)
	if id == "" {
		return false
	}
	next := make([]string, 0, len(s.d.Amenities)+1)
	found := false
	for _, a := range s.d.Amenities {
		if a == id {
			found = true
			continue
		}
		next = append(next, a)
	}
	if !found {
		next = append(next, id)
	}
	s.d.Amenities = normalizeAmenities(next)
	return true
}

func (s *Store) SetPricing(p Pricing) bool {
	if s.d.Pricing == p {
		return false
	}
	s.d.Pricing = p
	return true
}

// SetPhotos replaces the photo list with one produced by the photo package.
func (s *Store) SetPhotos(list []photo.Draft) bool {
	if reflect.DeepEqual(s.d.Photos, list) {
		return false
	}
	s.d.Photos = append([]photo.Draft(nil), list...)
	return true
}

// QueueDeletion records an existing photo removed this session.
func (s *Store) QueueDeletion(p photo.Draft) bool {
	if p.IsNew() {
		return false
	}
	for _, q := range s.d.PendingDeletion {
		if q.ID == p.ID {
			return false
		}
	}
	p.Cover = false
	s.d.PendingDeletion = append(s.d.PendingDeletion, p)
	return true
}

// Unqueue takes a photo back out of the pending deletions.
func (s *Store) Unqueue(id string) (photo.Draft, bool) {
	for i, q := range s.d.PendingDeletion {
		if q.ID == id {
			s.d.PendingDeletion = append(s.d.PendingDeletion[:i:i], s.d.PendingDeletion[i+1:]...)
			return q, true
		}
	}
	return photo.Draft{}, false
}

// SetRecordID records the identity returned by a successful create.
func (s *Store) SetRecordID(id string) bool {
	if s.d.RecordID == id {
		return false
	}
	s.d.RecordID = id
	return true
}

// Reset discards everything and starts over on flow f.
func (s *Store) Reset(f flow.Flow) {
	s.d = New(f)
}

// Load replaces the state wholesale, as when restoring a snapshot or
// hydrating a remote record.
func (s *Store) Load(d Draft) {
	s.d = d.Clone()
	s.d.StepIndex = flow.Clamp(s.d.Flow, s.d.StepIndex)
	s.d.Amenities = normalizeAmenities(s.d.Amenities)
}

// Hydrate loads an existing record for editing.
func (s *Store) Hydrate(rec *Record) {
	s.Load(FromRecord(rec))
}

func normalizeAmenity(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// normalizeAmenities returns a sorted set without blanks.
func normalizeAmenities(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = normalizeAmenity(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
