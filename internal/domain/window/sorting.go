package window

// Sorting maps a window kind and its stack position to a draw order.
type Sorting struct {
	Base map[Kind]int
	Step int
}

// DefaultSorting returns the built-in tiers.
func DefaultSorting() Sorting {
	return Sorting{
		Base: map[Kind]int{
			KindWindow:  100,
			KindPopup:   200,
			KindOverlay: 300,
			KindSystem:  400,
		},
		Step: 10,
	}
}

// Order returns the sorting order for a window of kind at 1-based stack position.
func (s Sorting) Order(kind Kind, position int) int {
	if position < 1 {
		position = 1
	}
	return s.Base[kind] + (position-1)*s.Step
}
