package domain

// AcquireStatus tags the result of the elevation-acquisition stage. The
// stage absorbs its own failures: callers branch on the tag, never on
// incidental error types.
type AcquireStatus int

const (
	// Acquired means a usable elevation raster exists at Outcome.Path.
	Acquired AcquireStatus = iota
	// NoCoverage means the tile service returned zero tiles for the box.
	NoCoverage
	// TransientFailure means a network or I/O error interrupted the fetch
	// or merge. No retry is attempted; the orchestrator halts cleanly.
	TransientFailure
)

func (s AcquireStatus) String() string {
	switch s {
	case Acquired:
		return "acquired"
	case NoCoverage:
		return "no coverage"
	case TransientFailure:
		return "transient failure"
	default:
		return "unknown"
	}
}

// AcquireOutcome is the tagged result of acquisition. Path and Merged are
// meaningful only when Status is Acquired; Err only otherwise.
type AcquireOutcome struct {
	Status AcquireStatus
	Path   string
	Merged bool // true when N>1 tiles were mosaicked into Path
	Tiles  int
	Err    error
}

// OK reports whether acquisition produced a raster.
func (o AcquireOutcome) OK() bool { return o.Status == Acquired }
