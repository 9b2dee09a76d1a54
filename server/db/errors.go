// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import "errors"

// ArchiveError is the error type used by archivers for certain recognized
// errors. Not all returned errors will be of this type.
type ArchiveError struct {
	Code   uint16
	Detail string
}

// The possible Code values in an ArchiveError.
const (
	ErrGeneralFailure uint16 = iota
	ErrNoSnapshot
	ErrCorruptSnapshot
	ErrUnsupportedVersion
	ErrStaleCommit
)

func (ae ArchiveError) Error() string {
	desc := "unrecognized error"
	switch ae.Code {
	case ErrGeneralFailure:
		desc = "general failure"
	case ErrNoSnapshot:
		desc = "no snapshot"
	case ErrCorruptSnapshot:
		desc = "corrupt snapshot"
	case ErrUnsupportedVersion:
		desc = "unsupported snapshot version"
	case ErrStaleCommit:
		desc = "stale commit"
	}

	if ae.Detail == "" {
		return desc
	}
	return desc + ": " + ae.Detail
}

// SameErrorTypes checks for error equality or ArchiveError.Code equality if
// both errors are of type ArchiveError.
func SameErrorTypes(errA, errB error) bool {
	if errors.Is(errA, errB) {
		return true
	}
	var arA ArchiveError
	if errors.As(errA, &arA) {
		var arB ArchiveError
		if errors.As(errB, &arB) && arA.Code == arB.Code {
			return true
		}
	}
	return false
}

// IsErrNoSnapshot returns true if the error is of type ArchiveError and has
// code ErrNoSnapshot.
func IsErrNoSnapshot(err error) bool {
	var errA ArchiveError
	if errors.As(err, &errA) {
		return errA.Code == ErrNoSnapshot
	}
	return false
}
