package engine

// ShutdownKind distinguishes the two shutdown-request values the named
// one-shot channel carries (spec.md §6).
type ShutdownKind string

const (
	ShutdownCold ShutdownKind = "COLD"
	ShutdownWarm ShutdownKind = "WARM"
)

// ParseShutdownKind maps the wire value to a ShutdownKind, treating any
// unrecognized value as COLD (spec.md §6: "unknown values are treated as
// COLD").
func ParseShutdownKind(s string) ShutdownKind {
	if s == string(ShutdownWarm) {
		return ShutdownWarm
	}
	return ShutdownCold
}

// RequestShutdown posts kind to the shutdown channel, waking Serve.
// Non-blocking: a second request before Serve has consumed the first is
// dropped, since one shutdown is all the process will ever act on.
func (e *Engine) RequestShutdown(kind ShutdownKind) {
	select {
	case e.shutdown <- kind:
	default:
	}
}
