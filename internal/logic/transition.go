package logic

// Next returns the state entered when in arrives in from, and whether the
// transition is permitted. Permitted transitions are Closed→Opening→Open,
// Open→Closing→Closed, a motion state to its destination on interrupt, and
// any state to itself.
func Next(from State, in Input) (State, bool) {
	switch in {
	case InputPress:
		switch from {
		case StateClosed:
			return StateOpening, true
		case StateOpen:
			return StateClosing, true
		}
		// A press while moving is raised as an interrupt by the button source.
		return from, false

	case InputInterrupt:
		// Stable states halt in place.
		return from.Destination(), true

	case InputMotionTimeout:
		if from.Moving() {
			return from.Destination(), true
		}
		return from, false
	}
	return from, false
}

// Permitted reports whether moving from one state to another is allowed.
func Permitted(from, to State) bool {
	if from == to {
		return true
	}
	switch from {
	case StateClosed:
		return to == StateOpening
	case StateOpen:
		return to == StateClosing
	case StateOpening:
		return to == StateOpen
	case StateClosing:
		return to == StateClosed
	}
	return false
}
