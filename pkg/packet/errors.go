package packet

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by this package matches one of them
// with errors.Is.
var (
	ErrMalformedHeader        = errors.New("pktcodec: malformed header")
	ErrIncompleteBuilder      = errors.New("pktcodec: incomplete builder")
	ErrMissingChecksumContext = errors.New("pktcodec: missing checksum context")
	ErrSizeTooSmall           = errors.New("pktcodec: size too small")
	ErrInvalidField           = errors.New("pktcodec: invalid field value")
)

// MalformedHeaderError reports bytes that cannot be decoded as the named
// layer: too few bytes remain, or a length field points past the data.
type MalformedHeaderError struct {
	Layer  string
	Reason string
	Need   int // bytes required, 0 if not applicable
	Have   int // bytes available
}

func (e *MalformedHeaderError) Error() string {
	if e.Need > 0 {
		return fmt.Sprintf("%s: %s: %s (need %d bytes, have %d)", ErrMalformedHeader, e.Layer, e.Reason, e.Need, e.Have)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedHeader, e.Layer, e.Reason)
}

func (e *MalformedHeaderError) Unwrap() error { return ErrMalformedHeader }

// IncompleteBuilderError reports a required builder field that was never set.
type IncompleteBuilderError struct {
	Layer string
	Field string
}

func (e *IncompleteBuilderError) Error() string {
	return fmt.Sprintf("%s: %s: %s is required", ErrIncompleteBuilder, e.Layer, e.Field)
}

func (e *IncompleteBuilderError) Unwrap() error { return ErrIncompleteBuilder }

// MissingChecksumContextError reports a checksum fixup that needs
// pseudo-header addresses nobody supplied.
type MissingChecksumContextError struct {
	Layer string
}

func (e *MissingChecksumContextError) Error() string {
	return fmt.Sprintf("%s: %s: source and destination addresses are required to compute the checksum", ErrMissingChecksumContext, e.Layer)
}

func (e *MissingChecksumContextError) Unwrap() error { return ErrMissingChecksumContext }

// SizeTooSmallError reports a truncation budget below the minimum header
// size of the packet to truncate.
type SizeTooSmallError struct {
	Layer string
	Size  int
	Min   int
}

func (e *SizeTooSmallError) Error() string {
	return fmt.Sprintf("%s: %s: %d bytes is below the minimum header size of %d", ErrSizeTooSmall, e.Layer, e.Size, e.Min)
}

func (e *SizeTooSmallError) Unwrap() error { return ErrSizeTooSmall }

// InvalidFieldError reports a builder field or decoded field whose value the
// layer cannot represent or that violates a protocol constraint.
type InvalidFieldError struct {
	Layer  string
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", ErrInvalidField, e.Layer, e.Field, e.Reason)
}

func (e *InvalidFieldError) Unwrap() error { return ErrInvalidField }
