package motion

import "errors"

// Domain errors for the motion package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, motion.ErrInvalidDuration) {
//	    // reject the administrative write
//	}
var (
	// ErrInvalidDuration is returned when a configured duration is out of range.
	ErrInvalidDuration = errors.New("motion: duration out of range")

	// ErrInvalidSensor is returned when a sensor kind is not recognised.
	ErrInvalidSensor = errors.New("motion: invalid sensor kind")

	// ErrScheduleLength is returned when a schedule has the wrong slot count.
	ErrScheduleLength = errors.New("motion: schedule has wrong slot count")

	// ErrInvalidColor is returned when a colour string is not a valid hex colour.
	ErrInvalidColor = errors.New("motion: invalid colour")

	// ErrPersist is returned when a store fails to write its backing file.
	// The in-memory state is left unchanged on a failed persist.
	ErrPersist = errors.New("motion: persist failed")
)
