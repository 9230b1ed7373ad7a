// Package lifecycle decides when a logging session has really been closed,
// as opposed to a logger briefly switching away.
package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDebounce is how long a session must stay hidden before it counts as
// closed.
const DefaultDebounce = time.Second

// Visibility is the state reported by the client environment.
type Visibility string

const (
	Visible  Visibility = "visible"
	Hidden   Visibility = "hidden"
	Unloaded Visibility = "unloaded"
)

// ParseVisibility converts client input into a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case Visible, Hidden, Unloaded:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// ShouldClear reports whether a session in state, for elapsed time, should
// discard its selected views. Unloading clears at once; hiding clears only
// once it outlasts the debounce.
func ShouldClear(state Visibility, elapsed, debounce time.Duration) bool {
	switch state {
	case Unloaded:
		return true
	case Hidden:
		return elapsed >= debounce
	default:
		return false
	}
}
