package models

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFallback Outcome = "fallback"
)

// Result is what every capability adapter returns: either a genuine value
// or a degraded fallback value together with the reason it was used.
type Result[T any] struct {
	Value   T       `json:"value"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeOK}
}

func Fallback[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeFallback, Reason: reason}
}

func (r Result[T]) Degraded() bool {
	return r.Outcome == OutcomeFallback
}
