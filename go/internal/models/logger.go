package models

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Logger represents a participant recording events for a game session
type Logger struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials"`
}

// NewLogger creates a logger with a fresh id and derived initials
func NewLogger(displayName string) Logger {
	name := strings.TrimSpace(displayName)
	return Logger{
		ID:          uuid.New().String(),
		DisplayName: name,
		Initials:    DeriveInitials(name),
	}
}

// DeriveInitials returns the two character badge shown next to owned views.
// "Jane Doe" -> "JD", "jane" -> "JA", "" -> "??".
func DeriveInitials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})

	var out []rune
	switch {
	case len(words) >= 2:
		out = append(out, firstRune(words[0]), firstRune(words[1]))
	case len(words) == 1:
		runes := []rune(words[0])
		out = append(out, runes[0])
		if len(runes) > 1 {
			out = append(out, runes[1])
		}
	}

	if len(out) == 0 {
		return "??"
	}
	if len(out) == 1 {
		out = append(out, out[0])
	}
	return strings.ToUpper(string(out))
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return '?'
}
