package domain

import "errors"

var (
	// ErrManifestUnavailable indicates the update manifest could not be fetched or parsed.
	ErrManifestUnavailable = errors.New("update manifest unavailable")
	// ErrVersionUnavailable indicates the remote content version could not be read.
	ErrVersionUnavailable = errors.New("remote content version unavailable")
	// ErrContentUnavailable indicates the remote subject tree could not be loaded.
	ErrContentUnavailable = errors.New("remote content unavailable")
	// ErrEmptyUserName is returned when a profile is created without a name.
	ErrEmptyUserName = errors.New("user name must not be empty")
)
