package configstore

import (
	"errors"
	"os"
)

// ErrPermissionDenied is returned by Write when the underlying file
// cannot be replaced due to a permissions problem, even after one repair
// attempt (spec.md §4.9 / §7).
var ErrPermissionDenied = errors.New("configstore: permission denied")

// errSerialization is wrapped into ErrSerialization-carrying errors by
// document.go; kept unexported since callers only need to detect it via
// errors.Is against the exported sentinel below.
var errSerialization = errors.New("configstore: serialization error")

// ErrSerialization is returned by Write when the in-memory Config cannot
// be marshaled to JSON (should not occur for a well-typed Config, but
// the spec names it as a typed failure mode).
var ErrSerialization = errSerialization

func classifyWriteError(err error) error {
	if os.IsPermission(err) {
		return errors.Join(ErrPermissionDenied, err)
	}
	return err
}
