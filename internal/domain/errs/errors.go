package errs

import (
	"errors"
	"fmt"
)

var (
	ErrRole               = errors.New("wrong operator role")
	ErrOperatorExists     = errors.New("operator already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDeviceAlreadyExists = errors.New("device already exists")
	ErrDeviceNotFound      = errors.New("device not found")

	ErrAlreadyCapturing  = errors.New("already capturing")
	ErrNotCapturing      = errors.New("not capturing")
	ErrNoDevicesSelected = errors.New("no devices selected")
	ErrInvalidInterval   = errors.New("invalid capture interval")

	ErrFetchFailed          = errors.New("failed to fetch frame")
	ErrStorage              = errors.New("storage failure")
	ErrNoFrames             = errors.New("no frames to assemble")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrOvernightWindow = errors.New("schedule window ends before it starts")
	ErrScheduleEngaged = errors.New("manual control is disabled while schedule is engaged")

	ErrSessionNotFound   = errors.New("session not found")
	ErrNoVideo           = errors.New("capture has no assembled video")
	ErrPublisherDisabled = errors.New("publisher is not configured")
	ErrWriteToDB         = errors.New("failed to write to database")
)

// EncodingFailedError reports a non-zero exit of the external encoder.
type EncodingFailedError struct {
	ExitCode int
	Output   string
}

func (e *EncodingFailedError) Error() string {
	return fmt.Sprintf("encoding failed with exit code %d", e.ExitCode)
}
