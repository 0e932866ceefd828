package models

// ProgressFunc receives a percentage (0-100) and an advisory message.
type ProgressFunc func(percent int, message string)

// Report clamps percent into 0-100 before calling cb. A nil cb is ignored.
func Report(cb ProgressFunc, percent int, message string) {
	if cb == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	cb(percent, message)
}
