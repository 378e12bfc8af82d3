package config

// Verbosity controls how much the rendering layer prints. It never affects
// scheduling: the engine runs the same way at every level.
type Verbosity int

const (
	// Quiet suppresses progress output; only failures are reported.
	Quiet Verbosity = iota
	// Normal shows live task status.
	Normal
	// Verbose additionally streams task output, disabling the live redraw.
	Verbose
)

func (v Verbosity) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Verbose:
		return "verbose"
	default:
		return "normal"
	}
}
