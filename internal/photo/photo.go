// Package photo manages the ordered photo attachments of a listing draft.
//
// Every operation takes the current list and returns a new one; the input
// slice is never modified. A non-empty list always has exactly one cover.
package photo

import (
	"github.com/google/uuid"
)

// MaxPhotos is the capacity of a listing's photo list.
const MaxPhotos = 20

// Origin tells whether a photo already lives on the server.
type Origin string

const (
	OriginNew      Origin = "new"
	OriginExisting Origin = "existing"
)

// Tag classifies what a photo shows.
type Tag string

const (
	TagBedroom    Tag = "bedroom"
	TagKitchen    Tag = "kitchen"
	TagBathroom   Tag = "bathroom"
	TagLivingRoom Tag = "living_room"
	TagFacade     Tag = "facade"
	TagOther      Tag = "other"
)

// Tags lists every accepted tag in display order.
var Tags = []Tag{TagBedroom, TagKitchen, TagBathroom, TagLivingRoom, TagFacade, TagOther}

// ValidTag reports whether t belongs to the closed tag set.
func ValidTag(t Tag) bool {
	for _, known := range Tags {
		if t == known {
			return true
		}
	}
	return false
}

// Draft is one photo in the list.
type Draft struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Origin      Origin `json:"origin"`
	Payload     []byte `json:"-"`
	Filename    string `json:"filename,omitempty"`
	Tag         Tag    `json:"tag"`
	Cover       bool   `json:"cover"`
	Order       int    `json:"order"`
	RemoteOrder int    `json:"remote_order,omitempty"`
}

// IsNew reports whether the photo still has to be uploaded.
func (d Draft) IsNew() bool {
	return d.Origin == OriginNew
}

// File is a locally selected image waiting to become a draft.
type File struct {
	Name    string
	Data    []byte
	Preview string // handle from Registry.Allocate
}

// Existing builds a draft for a photo already attached to the remote record.
func Existing(id, url string, tag Tag, sortOrder int) Draft {
	if !ValidTag(tag) {
		tag = TagOther
	}
	return Draft{
		ID:          id,
		URL:         url,
		Origin:      OriginExisting,
		Tag:         tag,
		Order:       sortOrder,
		RemoteOrder: sortOrder,
	}
}

// Remaining returns how many more photos the list can take.
func Remaining(list []Draft) int {
	if n := MaxPhotos - len(list); n > 0 {
		return n
	}
	return 0
}

// Add appends one new draft per file, up to MaxPhotos. Files past the
// capacity are dropped; accepted reports how many were taken.
func Add(list []Draft, files []File) (out []Draft, accepted int) {
	out = clone(list)
	for _, f := range files {
		if len(out) >= MaxPhotos {
			break
		}
		out = append(out, Draft{
			ID:       uuid.NewString(),
			URL:      f.Preview,
			Origin:   OriginNew,
			Payload:  f.Data,
			Filename: f.Name,
			Tag:      TagOther,
			Order:    len(out),
		})
		accepted++
	}
	return normalize(out), accepted
}

// Remove drops the photo with the given id. The removed draft is returned so
// the caller can release its preview or queue a remote deletion; it is nil
// when id is not in the list.
func Remove(list []Draft, id string) ([]Draft, *Draft) {
	idx := indexOf(list, id)
	if idx < 0 {
		return clone(list), nil
	}
	removed := list[idx]
	out := make([]Draft, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	if removed.Cover && len(out) > 0 {
		out[0].Cover = true
	}
	return normalize(out), &removed
}

// Append puts d back at the end of the list, as when an existing photo is
// restored. It reports false when the list is full or already holds d.ID.
func Append(list []Draft, d Draft) ([]Draft, bool) {
	if len(list) >= MaxPhotos || indexOf(list, d.ID) >= 0 {
		return clone(list), false
	}
	d.Cover = false
	out := append(clone(list), d)
	return normalize(out), true
}

// SetCover moves the cover flag to id. Unknown ids leave the list unchanged.
func SetCover(list []Draft, id string) []Draft {
	out := clone(list)
	if indexOf(out, id) < 0 {
		return out
	}
	for i := range out {
		out[i].Cover = out[i].ID == id
	}
	return out
}

// SetTag reclassifies one photo. Callers must pass a tag accepted by ValidTag.
func SetTag(list []Draft, id string, tag Tag) []Draft {
	out := clone(list)
	if idx := indexOf(out, id); idx >= 0 {
		out[idx].Tag = tag
	}
	return out
}

// Reorder moves the photo at index from to index to. Out of range indices
// leave the list unchanged.
func Reorder(list []Draft, from, to int) []Draft {
	out := clone(list)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]Draft{moved}, out[to:]...)...)
	return normalize(out)
}

// FinalOrder returns the list in submission order: the cover first, the
// rest keeping their relative order. Order fields hold the final positions.
func FinalOrder(list []Draft) []Draft {
	out := make([]Draft, 0, len(list))
	for _, d := range list {
		if d.Cover {
			out = append(out, d)
		}
	}
	for _, d := range list {
		if !d.Cover {
			out = append(out, d)
		}
	}
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Cover returns the cover photo, if any.
func Cover(list []Draft) (Draft, bool) {
	for _, d := range list {
		if d.Cover {
			return d, true
		}
	}
	return Draft{}, false
}

// normalize reindexes Order densely and repairs the cover invariant.
func normalize(list []Draft) []Draft {
	covers := 0
	for i := range list {
		list[i].Order = i
		if list[i].Cover {
			covers++
			if covers > 1 {
				list[i].Cover = false
			}
		}
	}
	if covers == 0 && len(list) > 0 {
		list[0].Cover = true
	}
	return list
}

func indexOf(list []Draft, id string) int {
	for i, d := range list {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func clone(list []Draft) []Draft {
	out := make([]Draft, len(list), len(list)+1)
	copy(out, list)
	return out
}
