package game

// Outcome of a single exchange between side A and side B.
type Outcome int

const (
	Draw Outcome = iota
	AWins
	BWins
)

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	default:
		return "draw"
	}
}

// beats maps each choice to the one it defeats.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// Beats reports whether c defeats other.
func (c Choice) Beats(other Choice) bool {
	victim, ok := beats[c]
	return ok && victim == other
}

// Resolve decides a simultaneous exchange. Equal choices draw, and so does
// anything outside the three valid symbols.
func Resolve(a, b Choice) Outcome {
	switch {
	case a.Beats(b):
		return AWins
	case b.Beats(a):
		return BWins
	default:
		return Draw
	}
}
