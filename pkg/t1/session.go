// Package t1 implements the T=1 block-transmission protocol engine:
// a dialect-parameterized state machine that frames APDUs into I/R/S
// blocks, drives chaining, flow control, WTX, resync and boot
// handshakes across an unreliable half-duplex transport.
//
// The dispatch loop is grounded on pkg/sdo/client.go's shape: a single
// mutable struct owns all protocol state, one method advances the
// state machine by exactly one block exchange, and the public API
// drives that method in a loop. Block classification is grounded on
// pkg/sdo/common.go's per-state response-validity predicates.
package t1

import (
	"github.com/sirupsen/logrus"
	"github.com/t1proto/ese-link/internal/checksum"
	"github.com/t1proto/ese-link/internal/frame"
)

var log = logrus.StandardLogger()

// Session is the single mutable entity described in the data model:
// NAD pair, IFS sizes, sequence numbers, timing and retry budgets,
// windows over caller buffers, ATR, and one-shot boot flags. No
// internal locking: exactly one caller drives it at a time (§5).
type Session struct {
	dialect Dialect

	bound      bool
	nad, nadc  byte
	ifsc, ifsd int
	bwtMs      int
	chkAlgo    checksum.Algo

	ns, nr int

	halt, request, reqresp, badcrc, timeout, aborted bool

	retries      int
	wtx          int
	wtxRounds    int
	wtxMaxValue  int
	wtxMaxRounds int

	needReset, needCIP, needResync, needIFSDSync bool
	pendingIFSD                                  int
	pendingRequest                               sKind
	pendingRequestValid                          bool
	respKind                                     sKind
	respPayload                                  []byte
	lastEmittedSKind                             sKind
	lastEmittedWasS                              bool

	atr       []byte
	atrLength int

	buf *frame.Buffer

	recvSize, recvMax int

	sendRemain        []byte
	recvDst           []byte
	recvFilled        int
	lastErrKind       Kind

	logger  *logrus.Entry
	metrics *Metrics
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithMetrics attaches an optional, nil-safe metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger overrides the package-level logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a Session for the given dialect with all defaults
// armed and the boot handshake one-shots set, matching init() from
// the data model.
func New(dialect Dialect, opts ...Option) *Session {
	s := &Session{}
	s.dialect = dialect
	s.logger = logrus.NewEntry(log)
	for _, opt := range opts {
		opt(s)
	}
	s.init()
	return s
}

// init resets all fields to defaults and arms the boot handshake.
// Every one-shot flag, including needIFSDSync, is explicitly set here
// rather than left to rely on a zero value (§9 open question: the
// source's reliance on zeroed heap allocation is a latent trap).
func (s *Session) init() {
	s.bound = false
	s.nad, s.nadc = 0, 0
	s.ifsc = s.dialect.DefaultIFSC
	s.ifsd = s.dialect.DefaultIFSD
	s.bwtMs = s.dialect.DefaultBWTMs
	s.chkAlgo = s.dialect.ChkAlgo

	s.ns, s.nr = 0, 0

	s.halt = false
	s.request = false
	s.reqresp = false
	s.badcrc = false
	s.timeout = false
	s.aborted = false

	s.retries = 3
	s.wtx = 1
	s.wtxMaxValue = s.dialect.WTXMaxValue
	s.wtxRounds = s.dialect.WTXMaxRounds
	s.wtxMaxRounds = s.dialect.WTXMaxRounds

	// Cold-boot preamble: classic has no CIP exchange, so it arms the
	// RESET/SWR one-shot directly. Extended arms CIP only — SWR is not
	// part of the cold-boot path there, it is reserved for the explicit
	// reset-recovery path (Reset), which re-arms need_reset on
	// its own and, once that SWR round completes, chains into CIP the
	// same way a fresh boot would (see the sSWR case in response.go).
	if s.dialect.SupportsCIPSWR {
		s.needReset = false
		s.needCIP = true
	} else {
		s.needReset = true
		s.needCIP = false
	}
	s.needResync = false
	s.needIFSDSync = false
	s.pendingIFSD = 0
	s.pendingRequestValid = false

	s.atr = make([]byte, 0, 32)
	s.atrLength = 0

	s.buf = frame.NewBuffer(s.dialect.BlockCapacity())

	s.recvSize = 0
	s.recvMax = 65538

	s.sendRemain = nil
	s.recvDst = nil
	s.recvFilled = 0
	s.lastErrKind = KindNone
	s.lastEmittedWasS = false
}

// Bind sets the NAD pair. Idempotent when called with identical
// arguments; disallowed mid-session otherwise.
func (s *Session) Bind(src, dst uint8) error {
	if src > 7 || dst > 7 {
		return ErrInvalidArgument
	}
	nad := src | dst<<4
	nadc := dst | src<<4
	if s.bound {
		if s.nad == nad && s.nadc == nadc {
			return nil
		}
		return ErrAlreadyBound
	}
	s.nad = nad
	s.nadc = nadc
	s.bound = true
	s.logger = s.logger.WithFields(logrus.Fields{"nad": s.nad, "nadc": s.nadc})
	return nil
}

// Release sets halt so that any in-flight dispatch terminates at its
// next opportunity.
func (s *Session) Release() {
	s.halt = true
}

// bootPending reports whether any one-shot boot/sync flag is armed.
func (s *Session) bootPending() bool {
	return s.needReset || s.needCIP || s.needResync || s.needIFSDSync
}

// resetTransientState clears the per-transceive flags and windows,
// called at the top of Transceive (and of Reset/Resync/NegotiateIFSD,
// which drive the same loop for a boot-only exchange).
func (s *Session) resetTransientState() {
	s.halt = false
	s.reqresp = false
	s.badcrc = false
	s.timeout = false
	s.aborted = false
	s.retries = 3
	s.buf.Reset()
}
