package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindWindow, "Window"},
		{KindPopup, "Popup"},
		{KindOverlay, "Overlay"},
		{KindSystem, "System"},
		{Kind(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("popup")
	assert.True(t, ok)
	assert.Equal(t, KindPopup, k)

	_, ok = ParseKind("tooltip")
	assert.False(t, ok)
}

func TestCloseReason_String(t *testing.T) {
	assert.Equal(t, "Normal", CloseNormal.String())
	assert.Equal(t, "CloseAll", CloseAllReason.String())
	assert.Equal(t, "Force", CloseForce.String())
	assert.Equal(t, "Unknown", CloseReason(7).String())
}

func TestOptions_ResolveFillsUnsetOnly(t *testing.T) {
	d := Defaults{
		Kind:          KindPopup,
		TransitionIn:  Descriptor{Preset: "fade"},
		TransitionOut: Descriptor{Preset: "fade"},
		BlockInput:    true,
		CloseOnBack:   true,
	}

	r := Options{}.Resolve(d)
	assert.Equal(t, KindPopup, r.Kind)
	assert.Equal(t, "fade", r.TransitionIn.Preset)
	assert.True(t, r.BlockInput)
	assert.True(t, r.CloseOnBack)

	r = Options{
		Kind:         Ptr(KindSystem),
		TransitionIn: &Descriptor{Preset: "slide"},
		CloseOnBack:  Ptr(false),
	}.Resolve(d)
	assert.Equal(t, KindSystem, r.Kind)
	assert.Equal(t, "slide", r.TransitionIn.Preset)
	assert.Equal(t, "fade", r.TransitionOut.Preset, "unset option takes the default")
	assert.True(t, r.BlockInput)
	assert.False(t, r.CloseOnBack, "explicit false must not be overwritten")
}

func TestOptions_Or(t *testing.T) {
	caller := Options{CloseOnBack: Ptr(false)}
	registered := Options{Kind: Ptr(KindPopup), CloseOnBack: Ptr(true)}

	o := caller.Or(registered)
	assert.Equal(t, KindPopup, *o.Kind)
	assert.False(t, *o.CloseOnBack, "caller options win")
	assert.Nil(t, o.BlockInput)

	r := o.Resolve(Defaults{Kind: KindSystem, BlockInput: true})
	assert.Equal(t, KindPopup, r.Kind)
	assert.True(t, r.BlockInput, "unset in both layers falls through to the defaults")
}

func TestDescriptor_IsZero(t *testing.T) {
	assert.True(t, Descriptor{}.IsZero())
	assert.False(t, Descriptor{Preset: "fade"}.IsZero())
	assert.False(t, Descriptor{Settings: struct{}{}}.IsZero())
}

func TestSorting_Order(t *testing.T) {
	s := DefaultSorting()

	tests := []struct {
		name     string
		kind     Kind
		position int
		expected int
	}{
		{"first window", KindWindow, 1, 100},
		{"second window", KindWindow, 2, 110},
		{"popup at depth 3", KindPopup, 3, 220},
		{"system at depth 1", KindSystem, 1, 400},
		{"position clamps to 1", KindOverlay, 0, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Order(tt.kind, tt.position))
			assert.Equal(t, tt.expected, s.Order(tt.kind, tt.position), "pure function")
		})
	}
}
