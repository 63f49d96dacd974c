package domain

// OutcomeKind tags how an AI-facing call ended.
type OutcomeKind int

const (
	// OutcomeOK carries the value the caller asked for.
	OutcomeOK OutcomeKind = iota
	// OutcomeDegraded carries a usable fallback value and a reason.
	OutcomeDegraded
	// OutcomeFatal carries no usable value.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "fatal"
	}
}

// Outcome lets callers tell deliberate degradation apart from failure
// without inspecting message text.
type Outcome[T any] struct {
	Value  T
	Kind   OutcomeKind
	Reason string
	Err    error
}

func Ok[T any](v T) Outcome[T] { return Outcome[T]{Value: v, Kind: OutcomeOK} }

func Degraded[T any](v T, reason string, cause error) Outcome[T] {
	return Outcome[T]{Value: v, Kind: OutcomeDegraded, Reason: reason, Err: cause}
}

func Fatal[T any](err error) Outcome[T] { return Outcome[T]{Kind: OutcomeFatal, Err: err} }

func (o Outcome[T]) IsOK() bool       { return o.Kind == OutcomeOK }
func (o Outcome[T]) IsDegraded() bool { return o.Kind == OutcomeDegraded }
func (o Outcome[T]) IsFatal() bool    { return o.Kind == OutcomeFatal }
