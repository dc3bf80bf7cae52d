package domain

import "errors"

// Sentinel errors for the publish pipeline. Wrap with fmt.Errorf("%w: ...")
// and match with errors.Is.
var (
	// ErrConfig marks a missing or malformed configuration value. Fatal
	// before any remote call is made.
	ErrConfig = errors.New("configuration error")

	// ErrValidation marks malformed domain input (subject, names, IDs).
	ErrValidation = errors.New("validation error")

	// ErrWorkDir marks a missing or unwritable working directory.
	ErrWorkDir = errors.New("work directory error")
)
