package storage

import "errors"

// SourceKind names the store that served a call
type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceLocal  SourceKind = "local"
)

// Cause explains why the local store served a call
type Cause string

const (
	CauseNone        Cause = ""
	CauseUnavailable Cause = "unavailable"
	CauseTransient   Cause = "transient"
)

// Result carries a value together with the path taken to produce it.
// For writes, Source is remote only when the remote write succeeded as well
// as the local one.
type Result[T any] struct {
	Value     T
	Source    SourceKind
	Cause     Cause
	RemoteErr error
}

// Fallback reports whether the local store had to serve the call
func (r Result[T]) Fallback() bool {
	return r.Source == SourceLocal
}

func remoteResult[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceRemote}
}

// localResult tags a value served by the local store after remoteErr
func localResult[T any](v T, remoteErr error) Result[T] {
	r := Result[T]{Value: v, Source: SourceLocal, Cause: CauseTransient, RemoteErr: remoteErr}
	if errors.Is(remoteErr, ErrUnavailable) {
		r.Cause = CauseUnavailable
		r.RemoteErr = nil
	}
	return r
}

func outcome[T any](v T, remoteErr error) Result[T] {
	if remoteErr == nil {
		return remoteResult(v)
	}
	return localResult(v, remoteErr)
}
