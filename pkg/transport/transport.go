// Package transport defines the byte-stream bus contract the T=1
// engine is built against, and a small named-driver registry.
//
// This generalizes the teacher's CAN bus interface+registry
// (Bus/RegisterInterface/NewBus) from framed CAN messages to a raw
// half-duplex byte stream: the engine never constructs a Transport
// itself, it is handed one by the caller.
package transport

import (
	"fmt"
	"io"
	"time"
)

// Transport is the contract the dispatch loop consumes. It is
// intentionally narrow: read/write raw bytes, and optionally wait for
// a GPIO data-ready event (extended dialect only; Waiter may be nil).
type Transport interface {
	io.Reader
	io.Writer

	// Waiter returns a blocking wake source for "data likely
	// available", or nil if this transport has none. Implementations
	// without a GPIO line (or the classic dialect) return nil, and the
	// adapter falls back to pure polling.
	Waiter() Waiter
}

// Waiter is a GPIO-style rising-edge wait source.
type Waiter interface {
	// Wait blocks until an edge is observed or the deadline passes,
	// returning false on timeout.
	Wait(deadline time.Time) bool
	Close() error
}

// NewDriverFunc constructs a Transport for a given device path.
type NewDriverFunc func(devicePath string) (Transport, error)

var registry = make(map[string]NewDriverFunc)

// Register makes a named transport driver available to New. Drivers
// call this from an init() func, mirroring pkg/can/socketcan's
// self-registration.
func Register(name string, fn NewDriverFunc) {
	registry[name] = fn
}

// New constructs a Transport using the driver registered under name.
func New(name, devicePath string) (Transport, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("t1: unsupported transport driver %q", name)
	}
	return fn(devicePath)
}
