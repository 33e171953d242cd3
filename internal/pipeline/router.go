// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

// Decision is the router outcome.
type Decision int

const (
	// Proceed sends the request on to ranking.
	Proceed Decision = iota
	// ShortCircuit skips ranking and answers that no preferences were found.
	ShortCircuit
)

func (d Decision) String() string {
	if d == ShortCircuit {
		return "short_circuit"
	}
	return "proceed"
}

// PreferenceSet is implemented by both preference aggregates. Implementations
// must accept a nil receiver.
type PreferenceSet interface {
	HasAnyPreference() bool
}

// Route returns ShortCircuit when every supplied set is absent or empty.
func Route(prefs ...PreferenceSet) Decision {
	for _, p := range prefs {
		if p != nil && p.HasAnyPreference() {
			return Proceed
		}
	}
	return ShortCircuit
}
