package constants

const (
	Admin    = "admin"
	Operator = "operator"
)

const (
	DefaultInterval  = 5
	DefaultFramerate = 60

	// One snapshot a day is the slowest cadence accepted.
	MaxInterval  = 24 * 60 * 60
	MaxFramerate = 1000
)
