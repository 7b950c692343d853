package t1

import (
	"errors"
	"fmt"
)

// Kind is the protocol error-kind type from the error handling design:
// a small closed set, ordered from most recoverable to fatal, each
// wrapping a distinct sentinel so callers can branch with errors.Is.
// Grounded on pkg/sdo/common.go's SDOAbortCode (uint32 code +
// Error()/Description() backed by a map), generalized here to the T=1
// error table instead of SDO abort codes.
type Kind uint8

const (
	KindNone Kind = iota
	KindRemoteIOError
	KindTimeout
	KindBadMessage
	KindMessageTooLarge
	KindIOError
	KindBrokenPipe
	KindUnsupported
	KindFatalLinkDead
)

var kindDescription = map[Kind]string{
	KindNone:            "no error",
	KindRemoteIOError:   "checksum mismatch on received block",
	KindTimeout:         "block-waiting time elapsed without a reply",
	KindBadMessage:      "malformed header, wrong NAD, bad length, or unexpected response",
	KindMessageTooLarge: "received data exceeded recv_max or the block buffer",
	KindIOError:         "underlying transport read or write failed",
	KindBrokenPipe:      "card-initiated ABORT was honoured",
	KindUnsupported:     "unknown PCB or S-block kind",
	KindFatalLinkDead:   "automatic reset after a prior failure itself failed",
}

func (k Kind) String() string {
	if s, ok := kindDescription[k]; ok {
		return s
	}
	return "unknown error kind"
}

// sentinels, one per Kind, so errors.Is(err, t1.ErrTimeout) works
// without exposing Error's internals.
var (
	ErrRemoteIOError   = errors.New(kindDescription[KindRemoteIOError])
	ErrTimeout         = errors.New(kindDescription[KindTimeout])
	ErrBadMessage      = errors.New(kindDescription[KindBadMessage])
	ErrMessageTooLarge = errors.New(kindDescription[KindMessageTooLarge])
	ErrIOError         = errors.New(kindDescription[KindIOError])
	ErrBrokenPipe      = errors.New(kindDescription[KindBrokenPipe])
	ErrUnsupported     = errors.New(kindDescription[KindUnsupported])
	ErrFatalLinkDead   = errors.New(kindDescription[KindFatalLinkDead])
)

var kindSentinel = map[Kind]error{
	KindRemoteIOError:   ErrRemoteIOError,
	KindTimeout:         ErrTimeout,
	KindBadMessage:      ErrBadMessage,
	KindMessageTooLarge: ErrMessageTooLarge,
	KindIOError:         ErrIOError,
	KindBrokenPipe:      ErrBrokenPipe,
	KindUnsupported:     ErrUnsupported,
	KindFatalLinkDead:   ErrFatalLinkDead,
}

// Error wraps a Kind with optional extra context, implementing error
// and unwrapping to the Kind's sentinel for errors.Is.
type Error struct {
	Kind    Kind
	Context string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error {
	return kindSentinel[e.Kind]
}

// newErr builds a *Error for kind with context, or nil for KindNone.
func newErr(kind Kind, context string) error {
	if kind == KindNone {
		return nil
	}
	return &Error{Kind: kind, Context: context}
}

// Plumbing/argument errors, not part of the protocol error-kind table,
// grounded on the teacher's root errors.go sentinel-var style.
var (
	ErrInvalidArgument = errors.New("t1: invalid argument")
	ErrNotBound        = errors.New("t1: session not bound to a NAD pair")
	ErrAlreadyBound    = errors.New("t1: session already bound to a different NAD pair")
	ErrBufferTooSmall  = errors.New("t1: destination buffer too small")
)
