// Package latest combines the most recent snapshots of independently fetched
// resources. A snapshot is either pending, failed, or carries data; once data
// exists any later error is ignored by readers (stale-while-error).
package latest

// Snapshot is the latest observed state of one resource.
type Snapshot[T any] struct {
	Data *T
	Err  error
}

// Pending reports whether the first fetch is still in flight.
func (s Snapshot[T]) Pending() bool { return s.Data == nil && s.Err == nil }

// Failed reports whether the resource errored before ever producing data.
func (s Snapshot[T]) Failed() bool { return s.Data == nil && s.Err != nil }

// Ready reports whether usable data is present.
func (s Snapshot[T]) Ready() bool { return s.Data != nil }

// Of builds a ready snapshot holding a copy of v.
func Of[T any](v T) Snapshot[T] {
	return Snapshot[T]{Data: &v}
}

// Errored builds a failed snapshot.
func Errored[T any](err error) Snapshot[T] {
	return Snapshot[T]{Err: err}
}

// Arrival classifies which halves of a Pair have data.
type Arrival int

const (
	BothPending Arrival = iota
	FirstOnly
	SecondOnly
	BothReady
)

func (a Arrival) String() string {
	switch a {
	case BothPending:
		return "both_pending"
	case FirstOnly:
		return "first_only"
	case SecondOnly:
		return "second_only"
	case BothReady:
		return "both_ready"
	default:
		return "unknown"
	}
}

// Pair is the combine-latest of two snapshots.
type Pair[A, B any] struct {
	First  Snapshot[A]
	Second Snapshot[B]
}

// Combine pairs two snapshots.
func Combine[A, B any](a Snapshot[A], b Snapshot[B]) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

// Arrival is total over the four presence combinations. Failed halves count
// as not arrived.
func (p Pair[A, B]) Arrival() Arrival {
	switch {
	case p.First.Ready() && p.Second.Ready():
		return BothReady
	case p.First.Ready():
		return FirstOnly
	case p.Second.Ready():
		return SecondOnly
	default:
		return BothPending
	}
}
