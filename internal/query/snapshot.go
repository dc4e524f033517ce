package query

import "time"

// State is the lifecycle state of a query snapshot.
type State int

const (
	StateIdle    State = iota // never synced
	StateLoading              // fetch in progress (may hold previous data)
	StateSuccess              // last attempt succeeded
	StateFailure              // last attempt failed (may hold previous data)
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Snapshot holds typed data along with its fetch state.
// Every query exposes Snapshot[T]; consumers never see any.
// Consumers must not mutate Data in place.
type Snapshot[T any] struct {
	Data      T
	State     State
	Err       error
	Message   string // Err described for the requested locale
	Degraded  bool   // Data was served in a locale other than the one requested
	Locale    string // locale Data was served in
	Notice    string // human-readable disclosure for degraded data
	HasData   bool   // distinguishes zero-value T from "never fetched"
	FetchedAt time.Time
}

// Loading reports whether the consumer should render a loading state.
// A query that has not fetched yet counts as loading.
func (s Snapshot[T]) Loading() bool {
	return s.State == StateIdle || s.State == StateLoading
}

// Failed reports whether the last attempt failed.
func (s Snapshot[T]) Failed() bool {
	return s.State == StateFailure
}

// Usable returns true if the snapshot has data, regardless of state.
func (s Snapshot[T]) Usable() bool {
	return s.HasData
}
