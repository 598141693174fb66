package draft

import (
	"sort"

	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
)

// Record is a listing as the backend returns it.
type Record struct {
	ID string `json:"id"`
	Payload
	Status string        `json:"status,omitempty"`
	Photos []RemotePhoto `json:"photos"`
}

// RemotePhoto is a photo attached to a Record.
type RemotePhoto struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Tag       photo.Tag `json:"tag"`
	SortOrder int       `json:"sort_order"`
}

// FromRecord builds an edit-mode draft from a remote record. Photos are
// ordered by their remote sort position; the first becomes the cover.
// RemoteOrder keeps the hydrated dense position, so sparse or 1-based
// backend orders do not count as moves.
func FromRecord(rec *Record) Draft {
	remote := append([]RemotePhoto(nil), rec.Photos...)
	sort.SliceStable(remote, func(i, j int) bool {
		return remote[i].SortOrder < remote[j].SortOrder
	})

	photos := make([]photo.Draft, 0, len(remote))
	for i, p := range remote {
		d := photo.Existing(p.ID, p.URL, p.Tag, i)
		d.Cover = i == 0
		photos = append(photos, d)
	}

	return Draft{
		RecordID:     rec.ID,
		Flow:         flow.Edit,
		PropertyType: rec.PropertyType,
		RentMode:     rec.RentMode,
		Location:     rec.Location,
		Photos:       photos,
		Title:        rec.Title,
		Description:  rec.Description,
		Amenities:    normalizeAmenities(rec.Amenities),
		Pricing:      rec.Pricing,
		Original: &Original{
			Title:       rec.Title,
			Description: rec.Description,
		},
	}
}
