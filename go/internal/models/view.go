package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownView is returned when a view id is not part of the enumerated set
var ErrUnknownView = errors.New("unknown view")

// ViewID identifies one logical category of events being logged.
type ViewID string

const (
	ViewClock     ViewID = "clock"
	ViewGoals     ViewID = "goals"
	ViewShots     ViewID = "shots"
	ViewPenalties ViewID = "penalties"
	ViewFaceoffs  ViewID = "faceoffs"
	ViewShifts    ViewID = "shifts"
	ViewVideo     ViewID = "video"
)

// AllViews lists every known view in display order.
var AllViews = []ViewID{
	ViewClock,
	ViewGoals,
	ViewShots,
	ViewPenalties,
	ViewFaceoffs,
	ViewShifts,
	ViewVideo,
}

// Valid reports whether v is one of the enumerated views.
func (v ViewID) Valid() bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}

func (v ViewID) String() string {
	return string(v)
}

// ParseViewID converts untrusted input into a ViewID.
func ParseViewID(s string) (ViewID, error) {
	v := ViewID(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
	return v, nil
}

// ParseViewIDs parses a list, keeping the first occurrence of duplicates.
func ParseViewIDs(in []string) ([]ViewID, error) {
	out := make([]ViewID, 0, len(in))
	for _, s := range in {
		v, err := ParseViewID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return DedupeViews(out), nil
}

// DedupeViews returns views in their original order without duplicates.
func DedupeViews(views []ViewID) []ViewID {
	seen := make(map[ViewID]bool, len(views))
	out := make([]ViewID, 0, len(views))
	for _, v := range views {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// MustBeKnown panics on a view outside the enumerated set. Unknown views
// inside the coordinator are caller bugs, not user input.
func MustBeKnown(v ViewID) {
	if !v.Valid() {
		panic(fmt.Sprintf("rinklog: %v %q", ErrUnknownView, string(v)))
	}
}
