// Package flow defines the wizard's authoring flows and the step ordering
// each of them imposes.
//
// Navigation is a pure table lookup on (flow, step): the previous step is
// never taken from visit history, so moving back and forth is idempotent.
package flow

import (
	"fmt"
	"strings"
)

// Step is one screen of the wizard.
type Step string

const (
	StepMode        Step = "mode"
	StepType        Step = "type"
	StepLocation    Step = "location"
	StepPhotos      Step = "photos"
	StepDescription Step = "description"
	StepAmenities   Step = "amenities"
	StepPrice       Step = "price"
	StepReview      Step = "review"
	StepPublish     Step = "publish"
)

// Title returns the heading shown for the step.
func (s Step) Title() string {
	switch s {
	case StepMode:
		return "How do you want to start?"
	case StepType:
		return "Property type"
	case StepLocation:
		return "Location"
	case StepPhotos:
		return "Photos"
	case StepDescription:
		return "Title and description"
	case StepAmenities:
		return "Amenities"
	case StepPrice:
		return "Price and terms"
	case StepReview:
		return "Review"
	case StepPublish:
		return "Publish"
	default:
		return string(s)
	}
}

// Flow is an authoring mode. Each flow has its own fixed step ordering.
type Flow string

const (
	// Linear walks the full catalogue in order.
	Linear Flow = "linear"
	// BranchingFast defers photos until after price and skips amenities.
	BranchingFast Flow = "fast"
	// BranchingManual defers photos until after price.
	BranchingManual Flow = "manual"
	// Edit modifies an existing record and starts at photos.
	Edit Flow = "edit"
)

// CreateFlows are the flows a user may pick on the mode step.
var CreateFlows = []Flow{Linear, BranchingFast, BranchingManual}

// Description summarises the flow for the mode picker.
func (f Flow) Description() string {
	switch f {
	case Linear:
		return "Step by step through every section"
	case BranchingFast:
		return "Essentials first, photos at the end"
	case BranchingManual:
		return "Full details first, photos at the end"
	case Edit:
		return "Edit an existing listing"
	default:
		return string(f)
	}
}

// Strict reports whether the flow requires a description body in addition
// to the title. Only the manual flow does.
func (f Flow) Strict() bool {
	return f == BranchingManual
}

// ParseFlow accepts a flow name, case-insensitively.
func ParseFlow(s string) (Flow, error) {
	switch f := Flow(strings.ToLower(strings.TrimSpace(s))); f {
	case Linear, BranchingFast, BranchingManual, Edit:
		return f, nil
	case "":
		return Linear, nil
	default:
		return "", fmt.Errorf("unknown flow %q (must be linear, fast, manual or edit)", s)
	}
}

var orderings = map[Flow][]Step{
	Linear:          {StepMode, StepType, StepLocation, StepPhotos, StepDescription, StepAmenities, StepPrice, StepReview, StepPublish},
	BranchingFast:   {StepMode, StepType, StepLocation, StepDescription, StepPrice, StepPhotos, StepReview, StepPublish},
	BranchingManual: {StepMode, StepType, StepLocation, StepDescription, StepAmenities, StepPrice, StepPhotos, StepReview, StepPublish},
	Edit:            {StepPhotos, StepDescription, StepAmenities, StepPrice, StepReview, StepPublish},
}

type edges struct {
	next, prev Step
}

// table maps (flow, step) to its neighbours, clamped at both ends.
var table = buildTable()

func buildTable() map[Flow]map[Step]edges {
	t := make(map[Flow]map[Step]edges, len(orderings))
	for f, steps := range orderings {
		row := make(map[Step]edges, len(steps))
		for i, s := range steps {
			e := edges{next: s, prev: s}
			if i+1 < len(steps) {
				e.next = steps[i+1]
			}
			if i > 0 {
				e.prev = steps[i-1]
			}
			row[s] = e
		}
		t[f] = row
	}
	return t
}

// Steps returns the ordering of f. Unknown flows fall back to Linear.
func Steps(f Flow) []Step {
	steps, ok := orderings[f]
	if !ok {
		steps = orderings[Linear]
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Next returns the step after s in f, or s itself at the end.
func Next(f Flow, s Step) Step {
	if e, ok := table[known(f)][s]; ok {
		return e.next
	}
	return s
}

// Prev returns the step before s in f, or s itself at the start.
func Prev(f Flow, s Step) Step {
	if e, ok := table[known(f)][s]; ok {
		return e.prev
	}
	return s
}

// IndexOf returns the position of s in f, or -1 when f does not contain s.
func IndexOf(f Flow, s Step) int {
	for i, step := range orderings[known(f)] {
		if step == s {
			return i
		}
	}
	return -1
}

// At returns the step at index i in f, clamped to the ordering.
func At(f Flow, i int) Step {
	steps := orderings[known(f)]
	if i < 0 {
		i = 0
	}
	if i >= len(steps) {
		i = len(steps) - 1
	}
	return steps[i]
}

// Clamp bounds i to the valid indices of f.
func Clamp(f Flow, i int) int {
	return IndexOf(f, At(f, i))
}

// Last reports whether s is the final step of f.
func Last(f Flow, s Step) bool {
	return Next(f, s) == s
}

// PhotosRequired reports whether the photo minimum applies at s. Steps placed
// before the photos step in f waive it.
func PhotosRequired(f Flow, s Step) bool {
	return IndexOf(f, s) >= IndexOf(f, StepPhotos)
}

func known(f Flow) Flow {
	if _, ok := orderings[f]; ok {
		return f
	}
	return Linear
}
