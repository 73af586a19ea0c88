package scoring

// Weights maps each point category to its value. The defaults mirror the
// house rules (a correct guess is worth double), but every value can be
// overridden through configuration without touching the engine.
type Weights struct {
	Guess    int
	Known    int
	Unseen   int
	Liked    int
	Disliked int
}

func DefaultWeights() Weights {
	return Weights{
		Guess:    2,
		Known:    1,
		Unseen:   1,
		Liked:    1,
		Disliked: 1,
	}
}
