// Package validate holds the per-step predicates that gate forward
// navigation, and the final gate that runs all of them before submission.
package validate

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/flow"
)

const (
	// MinPhotos is the smallest photo count a new listing may be submitted
	// with.
	MinPhotos = 5
	// MinEditPhotos is the smallest photo count an edited listing may keep.
	MinEditPhotos = 1
	// MaxTitleLength bounds the title in runes.
	MaxTitleLength = 120
)

// Failure explains why a step rejects the draft.
type Failure struct {
	Step   flow.Step
	Reason string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Step, f.Reason)
}

type rule func(f flow.Flow, d draft.Draft) []Failure

var rules = map[flow.Step]rule{
	flow.StepLocation:    location,
	flow.StepPhotos:      photos,
	flow.StepDescription: description,
	flow.StepPrice:       price,
}

// Step runs the validator of step s. Steps placed at or after the photos
// step also carry the photo minimum, so a branching flow cannot skip past
// it once photos were reached. A nil result means the step accepts.
func Step(f flow.Flow, s flow.Step, d draft.Draft) []Failure {
	var out []Failure
	if r, ok := rules[s]; ok {
		out = append(out, r(f, d)...)
	}
	if s != flow.StepPhotos && flow.PhotosRequired(f, s) {
		out = append(out, photos(f, d)...)
	}
	return out
}

// Final runs every validator against d regardless of which steps were
// visited.
func Final(f flow.Flow, d draft.Draft) []Failure {
	var out []Failure
	for _, s := range []flow.Step{flow.StepLocation, flow.StepPhotos, flow.StepDescription, flow.StepPrice} {
		out = append(out, rules[s](f, d)...)
	}
	return out
}

// Summary joins failures into one line.
func Summary(failures []Failure) string {
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

func location(_ flow.Flow, d draft.Draft) []Failure {
	if strings.TrimSpace(d.Location.City) == "" {
		return []Failure{{flow.StepLocation, "choose a city"}}
	}
	return nil
}

// MinPhotosFor returns the photo minimum of flow f. Published listings were
// accepted under the backend's own rules, so edits only keep one photo.
func MinPhotosFor(f flow.Flow) int {
	if f == flow.Edit {
		return MinEditPhotos
	}
	return MinPhotos
}

func photos(f flow.Flow, d draft.Draft) []Failure {
	want := MinPhotosFor(f)
	n := len(d.Photos)
	switch {
	case n >= want:
		return nil
	case want == 1:
		return []Failure{{flow.StepPhotos, "keep at least one photo"}}
	default:
		return []Failure{{flow.StepPhotos, fmt.Sprintf("add at least %d photos (have %d)", want, n)}}
	}
}

func description(f flow.Flow, d draft.Draft) []Failure {
	var out []Failure
	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		out = append(out, Failure{flow.StepDescription, "enter a title"})
	case utf8.RuneCountInString(title) > MaxTitleLength:
		out = append(out, Failure{flow.StepDescription, fmt.Sprintf("title is longer than %d characters", MaxTitleLength)})
	}
	if f.Strict() && strings.TrimSpace(d.Description) == "" {
		out = append(out, Failure{flow.StepDescription, "enter a description"})
	}
	return out
}

func price(_ flow.Flow, d draft.Draft) []Failure {
	var out []Failure
	p := d.Pricing
	if !Finite(p.Price) || p.Price <= 0 {
		out = append(out, Failure{flow.StepPrice, "enter a price greater than zero"})
	}
	if !Finite(p.Deposit) || p.Deposit < 0 {
		out = append(out, Failure{flow.StepPrice, "deposit cannot be negative"})
	}
	if !Finite(p.Commission) || p.Commission < 0 || p.Commission > 100 {
		out = append(out, Failure{flow.StepPrice, "commission must be between 0 and 100 percent"})
	}
	return out
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
