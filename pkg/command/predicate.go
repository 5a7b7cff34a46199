package command

// Predicate is a zero-argument condition, used for termination and triggers.
type Predicate func() bool

func always() bool { return true }

func never() bool { return false }

// Negate returns a predicate that is true when p is false.
func Negate(p Predicate) Predicate {
	return func() bool { return !p() }
}

// Both returns a predicate that is true when a and b are true. b is not
// evaluated when a is false.
func Both(a, b Predicate) Predicate {
	return func() bool { return a() && b() }
}

// Either returns a predicate that is true when a or b is true. b is not
// evaluated when a is true.
func Either(a, b Predicate) Predicate {
	return func() bool { return a() || b() }
}

// All is the variadic form of Both. With no arguments it is always true.
func All(ps ...Predicate) Predicate {
	return func() bool {
		for _, p := range ps {
			if !p() {
				return false
			}
		}
		return true
	}
}

// Any is the variadic form of Either. With no arguments it is always false.
func Any(ps ...Predicate) Predicate {
	return func() bool {
		for _, p := range ps {
			if p() {
				return true
			}
		}
		return false
	}
}
