// Package fault defines the error taxonomy shared across the curation pipeline.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a fault for propagation and HTTP mapping.
type Kind string

const (
	// KindNotFound: a referenced entity does not exist. Never retried.
	KindNotFound Kind = "not_found"
	// KindExternal: a vendor or transport failure during generation.
	KindExternal Kind = "external"
	// KindProcessing: malformed or unparseable output from a provider.
	KindProcessing Kind = "processing"
	// KindInvalid: the request violates a contract (bad arguments, bad transition).
	KindInvalid Kind = "invalid"
)

// Fault is a classified pipeline error.
type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// NotFound reports a missing entity by type and identifier.
func NotFound(entity, id string) *Fault {
	return &Fault{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %q not found", entity, id),
	}
}

// External wraps a vendor/transport failure, naming the service.
func External(service string, err error) *Fault {
	return &Fault{
		Kind:    KindExternal,
		Message: fmt.Sprintf("%s call failed", service),
		Err:     err,
	}
}

// Externalf creates an external fault without an underlying error.
func Externalf(service, format string, args ...any) *Fault {
	return &Fault{
		Kind:    KindExternal,
		Message: service + ": " + fmt.Sprintf(format, args...),
	}
}

// Processing wraps a parse/normalization failure.
func Processing(msg string, err error) *Fault {
	return &Fault{Kind: KindProcessing, Message: msg, Err: err}
}

// Invalid reports a contract violation.
func Invalid(format string, args ...any) *Fault {
	return &Fault{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the fault kind in err's chain, or "" if err is not a Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsExternal reports whether err carries KindExternal.
func IsExternal(err error) bool { return KindOf(err) == KindExternal }

// IsProcessing reports whether err carries KindProcessing.
func IsProcessing(err error) bool { return KindOf(err) == KindProcessing }

// IsInvalid reports whether err carries KindInvalid.
func IsInvalid(err error) bool { return KindOf(err) == KindInvalid }
