package window

// Defaults are the values a window type declares for itself.
type Defaults struct {
	Kind          Kind
	TransitionIn  Descriptor
	TransitionOut Descriptor
	BlockInput    bool
	CloseOnBack   bool
}

// Options are per-open overrides. A nil field means "use the window's default".
type Options struct {
	Kind          *Kind
	TransitionIn  *Descriptor
	TransitionOut *Descriptor
	BlockInput    *bool
	CloseOnBack   *bool
}

// Resolved is a fully populated option set.
type Resolved struct {
	Kind          Kind
	TransitionIn  Descriptor
	TransitionOut Descriptor
	BlockInput    bool
	CloseOnBack   bool
}

// Resolve fills every unset option from d. Explicit options are never overwritten.
func (o Options) Resolve(d Defaults) Resolved {
	r := Resolved{
		Kind:          d.Kind,
		TransitionIn:  d.TransitionIn,
		TransitionOut: d.TransitionOut,
		BlockInput:    d.BlockInput,
		CloseOnBack:   d.CloseOnBack,
	}
	if o.Kind != nil {
		r.Kind = *o.Kind
	}
	if o.TransitionIn != nil {
		r.TransitionIn = *o.TransitionIn
	}
	if o.TransitionOut != nil {
		r.TransitionOut = *o.TransitionOut
	}
	if o.BlockInput != nil {
		r.BlockInput = *o.BlockInput
	}
	if o.CloseOnBack != nil {
		r.CloseOnBack = *o.CloseOnBack
	}
	return r
}

// Or fills every unset option of o from fallback.
func (o Options) Or(fallback Options) Options {
	if o.Kind == nil {
		o.Kind = fallback.Kind
	}
	if o.TransitionIn == nil {
		o.TransitionIn = fallback.TransitionIn
	}
	if o.TransitionOut == nil {
		o.TransitionOut = fallback.TransitionOut
	}
	if o.BlockInput == nil {
		o.BlockInput = fallback.BlockInput
	}
	if o.CloseOnBack == nil {
		o.CloseOnBack = fallback.CloseOnBack
	}
	return o
}

// Ptr returns a pointer to v, for filling Options inline.
func Ptr[T any](v T) *T {
	return &v
}
