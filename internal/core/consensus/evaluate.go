package consensus

// Kind is the verdict of an evaluation
type Kind string

const (
	NotReady  Kind = "NOT_READY"
	Consensus Kind = "CONSENSUS"
	Conflict  Kind = "CONFLICT"
)

// Outcome carries the agreed decision when Kind is Consensus
type Outcome struct {
	Kind     Kind
	Decision Decision
}

// Evaluate judges a pool holding one decision per distinct reviewer.
// Below required the pool is NotReady. At or above it the pool is a
// Consensus only when every decision is the same final value; any
// disagreement, any MAYBE, and an all MAYBE pool are a Conflict
func Evaluate(pool []Decision, required int) Outcome {
	if required < 1 {
		required = 1
	}
	if len(pool) < required {
		return Outcome{Kind: NotReady}
	}
	first := pool[0]
	if !first.Final() {
		return Outcome{Kind: Conflict}
	}
	for _, d := range pool[1:] {
		if d != first {
			return Outcome{Kind: Conflict}
		}
	}
	return Outcome{Kind: Consensus, Decision: first}
}
