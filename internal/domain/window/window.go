// Package window defines the data side of overlay windows: kinds, options,
// close reasons, and the sorting rule.
package window

import (
	"context"
	"time"
)

// Kind is the sort-order tier of a window.
type Kind int

const (
	KindWindow Kind = iota
	KindPopup
	KindOverlay
	KindSystem
)

// String returns the string representation of the window kind
func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "Window"
	case KindPopup:
		return "Popup"
	case KindOverlay:
		return "Overlay"
	case KindSystem:
		return "System"
	default:
		return "Unknown"
	}
}

// ParseKind maps a config name to a Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "window", "Window", "":
		return KindWindow, true
	case "popup", "Popup":
		return KindPopup, true
	case "overlay", "Overlay":
		return KindOverlay, true
	case "system", "System":
		return KindSystem, true
	default:
		return KindWindow, false
	}
}

// CloseReason says why a window's close token resolved.
type CloseReason int

const (
	// CloseNormal is a caller- or window-initiated close; its payload is returned.
	CloseNormal CloseReason = iota
	// CloseAllReason is a bulk close; the payload is discarded.
	CloseAllReason
	// CloseForce is an externally forced teardown; the payload is discarded.
	CloseForce
)

// String returns the string representation of the close reason
func (r CloseReason) String() string {
	switch r {
	case CloseNormal:
		return "Normal"
	case CloseAllReason:
		return "CloseAll"
	case CloseForce:
		return "Force"
	default:
		return "Unknown"
	}
}

// Descriptor selects a transition either by preset name or by typed settings.
// Settings takes precedence when both are set.
type Descriptor struct {
	Preset   string
	Settings any
}

// IsZero reports whether the descriptor selects nothing.
func (d Descriptor) IsZero() bool {
	return d.Preset == "" && d.Settings == nil
}

// Animatable is the surface a transition drives.
type Animatable interface {
	SetAlpha(alpha float64)
	SetOffset(dx, dy float64)
}

// Transition plays a window in or out.
type Transition interface {
	In(ctx context.Context, target Animatable) error
	Out(ctx context.Context, target Animatable) error
	Duration() time.Duration
}

// TransitionFactory builds transitions from descriptors.
type TransitionFactory interface {
	Create(d Descriptor) (Transition, error)
}
