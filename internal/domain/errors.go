package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures surfaced by the store.
type ErrorKind string

const (
	// KindConfiguration covers bad dimensionality, unsupported metrics and unset config.
	KindConfiguration ErrorKind = "configuration"

	// KindConnection means the backend could not be reached.
	KindConnection ErrorKind = "connection"

	// KindEmbedding means the embedding provider failed.
	KindEmbedding ErrorKind = "embedding"

	// KindStorage means the backend rejected or failed an upsert or search.
	KindStorage ErrorKind = "storage"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrConnection    = &Error{Kind: KindConnection}
	ErrEmbedding     = &Error{Kind: KindEmbedding}
	ErrStorage       = &Error{Kind: KindStorage}
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Configuration(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

func Connection(op string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

func Embedding(op string, err error) error {
	return &Error{Kind: KindEmbedding, Op: op, Err: err}
}

func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// Configurationf is a shorthand for Configuration(op, fmt.Errorf(format, args...)).
func Configurationf(op, format string, args ...any) error {
	return Configuration(op, fmt.Errorf(format, args...))
}
