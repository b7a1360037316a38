package domain

import (
	"errors"
	"fmt"
)

// Kind classifies where in the backup pipeline an error happened.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindRemoteFetch   Kind = "remote_fetch"
	KindStorageWrite  Kind = "storage_write"
	KindStorageList   Kind = "storage_list"
	KindStorageDelete Kind = "storage_delete"
	KindLocalIO       Kind = "local_io"
	KindRetention     Kind = "retention"
	KindConfig        Kind = "config"
	KindUnknown       Kind = "unknown"
)

// Error is a classified pipeline error. StatusCode is only set for
// KindRemoteFetch.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	case e.Err == nil:
		return e.Op
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. A nil err with a kind other than
// KindRemoteFetch still yields a usable error carrying only op.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
