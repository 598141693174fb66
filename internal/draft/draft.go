// Package draft holds the field state of one listing authoring session and
// its durable snapshot form.
package draft

import (
	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
)

// PropertyType classifies the listed property.
type PropertyType string

const (
	Apartment  PropertyType = "apartment"
	House      PropertyType = "house"
	Room       PropertyType = "room"
	Studio     PropertyType = "studio"
	Commercial PropertyType = "commercial"
)

// PropertyTypes lists every property type in display order.
var PropertyTypes = []PropertyType{Apartment, House, Room, Studio, Commercial}

// RentMode is the rental term.
type RentMode string

const (
	LongTerm RentMode = "long_term"
	Daily    RentMode = "daily"
)

// RentModes lists every rent mode in display order.
var RentModes = []RentMode{LongTerm, Daily}

// Utilities says how utility bills are settled.
type Utilities string

const (
	UtilitiesIncluded Utilities = "included"
	UtilitiesExtra    Utilities = "extra"
	UtilitiesNone     Utilities = "none"
)

// UtilityOptions lists every utilities choice in display order.
var UtilityOptions = []Utilities{UtilitiesIncluded, UtilitiesExtra, UtilitiesNone}

// Amenities is the catalogue offered by the shell. The store accepts any
// identifier, so records created elsewhere round-trip unchanged.
var Amenities = []string{
	"air_conditioning",
	"balcony",
	"dishwasher",
	"elevator",
	"furniture",
	"heating",
	"parking",
	"pets_allowed",
	"washer",
	"wifi",
}

// Geo is an optional coordinate pair from the address picker.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is the postal address of the property.
type Location struct {
	City     string `json:"city"`
	District string `json:"district,omitempty"`
	Street   string `json:"street,omitempty"`
	Building string `json:"building,omitempty"`
	Geo      *Geo   `json:"geo,omitempty"`
}

// Pricing holds the money terms. A zero Price means no price was entered.
type Pricing struct {
	Price      float64   `json:"price"`
	Deposit    float64   `json:"deposit"`
	Commission float64   `json:"commission"`
	Utilities  Utilities `json:"utilities,omitempty"`
}

// Original keeps the text a record had when it was hydrated.
type Original struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Draft is the whole wizard state for one listing.
type Draft struct {
	RecordID        string        `json:"record_id,omitempty"`
	Flow            flow.Flow     `json:"flow"`
	PropertyType    PropertyType  `json:"property_type,omitempty"`
	RentMode        RentMode      `json:"rent_mode,omitempty"`
	Location        Location      `json:"location"`
	Photos          []photo.Draft `json:"photos"`
	PendingDeletion []photo.Draft `json:"pending_deletion,omitempty"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Amenities       []string      `json:"amenities"`
	Pricing         Pricing       `json:"pricing"`
	StepIndex       int           `json:"step_index"`
	Original        *Original     `json:"original,omitempty"`
}

// New returns an empty draft positioned at the first step of f.
func New(f flow.Flow) Draft {
	return Draft{Flow: f}
}

// Editing reports whether the draft targets an existing record.
func (d Draft) Editing() bool {
	return d.RecordID != ""
}

// Step returns the current step.
func (d Draft) Step() flow.Step {
	return flow.At(d.Flow, d.StepIndex)
}

// NewPhotos returns the photos that still need uploading.
func (d Draft) NewPhotos() []photo.Draft {
	var out []photo.Draft
	for _, p := range d.Photos {
		if p.IsNew() {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy so callers can hold a snapshot while the store
// keeps changing.
func (d Draft) Clone() Draft {
	out := d
	out.Photos = append([]photo.Draft(nil), d.Photos...)
	out.PendingDeletion = append([]photo.Draft(nil), d.PendingDeletion...)
	out.Amenities = append([]string(nil), d.Amenities...)
	if d.Location.Geo != nil {
		g := *d.Location.Geo
		out.Location.Geo = &g
	}
	if d.Original != nil {
		o := *d.Original
		out.Original = &o
	}
	return out
}

// Payload is the record body sent on create and update.
type Payload struct {
	PropertyType PropertyType `json:"property_type"`
	RentMode     RentMode     `json:"rent_mode"`
	Location     Location     `json:"location"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Amenities    []string     `json:"amenities"`
	Pricing      Pricing      `json:"pricing"`
}

// Payload extracts the record fields of the draft.
func (d Draft) Payload() Payload {
	amenities := d.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return Payload{
		PropertyType: d.PropertyType,
		RentMode:     d.RentMode,
		Location:     d.Location,
		Title:        d.Title,
		Description:  d.Description,
		Amenities:    amenities,
		Pricing:      d.Pricing,
	}
}
