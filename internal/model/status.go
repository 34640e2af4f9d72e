package model

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid status transition")

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses permit no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Label is the display text shown on the panel.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Beklemede"
	case StatusConfirmed:
		return "Onaylandı"
	case StatusCompleted:
		return "Tamamlandı"
	case StatusCancelled:
		return "İptal Edildi"
	default:
		return string(s)
	}
}

// LabelLower is the label lower-cased with Turkish dotted/dotless i rules,
// as interpolated into activity messages (İptal Edildi -> iptal edildi).
func (s Status) LabelLower() string {
	out := make([]rune, 0, len(s.Label()))
	for _, r := range s.Label() {
		switch r {
		case 'İ':
			out = append(out, 'i')
		case 'I':
			out = append(out, 'ı')
		default:
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out = append(out, r)
		}
	}
	return string(out)
}

// Color is the badge color used by the panel for this status.
func (s Status) Color() string {
	switch s {
	case StatusPending:
		return "#ffa500"
	case StatusConfirmed:
		return "#28a745"
	case StatusCompleted:
		return "#6c757d"
	case StatusCancelled:
		return "#dc3545"
	default:
		return "#007bff"
	}
}

// NextStatuses lists the transitions allowed from s. The panel renders one
// action button per entry.
func NextStatuses(s Status) []Status {
	switch s {
	case StatusPending:
		return []Status{StatusConfirmed, StatusCancelled}
	case StatusConfirmed:
		return []Status{StatusCompleted}
	default:
		return nil
	}
}

func CanTransition(from, to Status) bool {
	for _, next := range NextStatuses(from) {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks a requested status change before any mutation is
// attempted. Callers must not touch local state when it returns an error.
func ValidateTransition(from, to Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w: unknown current status %q", ErrInvalidTransition, string(from))
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown target status %q", ErrInvalidTransition, string(to))
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
