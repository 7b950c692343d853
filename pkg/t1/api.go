package t1

import "github.com/t1proto/ese-link/pkg/transport"

// Transceive is the top-level entry point (§4.4.3): sends apdu,
// drives the dispatch loop, and returns the bytes copied into resp.
//
// On a negative (error) result that was not an ABORT, and whose
// in-flight request was neither the reset/SWR request nor a WTX
// response nor (extended dialect) the RESYNC request itself, the
// engine transparently arms one automatic recovery attempt (RESYNC
// for extended, RESET for classic) and restarts the loop exactly
// once. If that also fails, ErrFatalLinkDead is returned so the
// caller knows only a cold reset can recover.
func (s *Session) Transceive(t transport.Transport, apdu, resp []byte) (int, error) {
	if !s.bound {
		return 0, ErrNotBound
	}
	if len(apdu) < 4 || len(resp) < 2 {
		return 0, ErrInvalidArgument
	}

	n, err := s.transceiveOnce(t, apdu, resp)
	if err == nil {
		return n, nil
	}
	if s.aborted {
		return 0, err
	}
	if s.lastEmittedWasS && (s.lastEmittedSKind == sSWR || s.lastEmittedSKind == sWTX ||
		(s.dialect.SupportsCIPSWR && s.lastEmittedSKind == sResync)) {
		return 0, err
	}

	if s.dialect.SupportsCIPSWR {
		s.needResync = true
		s.needReset = false
		s.needCIP = false
	} else {
		s.needReset = true
	}

	n, err2 := s.transceiveOnce(t, apdu, resp)
	if err2 == nil {
		return n, nil
	}
	return 0, ErrFatalLinkDead
}

// transceiveOnce runs exactly one pass of the dispatch loop over the
// given APDU/response windows, without the automatic-recovery retry.
func (s *Session) transceiveOnce(t transport.Transport, apdu, resp []byte) (int, error) {
	s.resetTransientState()
	s.sendRemain = apdu
	s.recvDst = resp
	s.recvFilled = 0
	s.recvSize = 0

	err := s.runLoop(t)
	if err != nil {
		return 0, err
	}
	return s.recvFilled, nil
}

// Reset re-arms need_reset and drives the loop once.
func (s *Session) Reset(t transport.Transport) error {
	if !s.bound {
		return ErrNotBound
	}
	s.resetTransientState()
	s.sendRemain = nil
	s.recvDst = nil
	s.recvFilled = 0
	s.needReset = true
	s.needCIP = false
	s.needResync = false
	return s.runLoop(t)
}

// Resync re-arms need_resync, clears send/receive sequence counters,
// and drives the loop once.
func (s *Session) Resync(t transport.Transport) error {
	if !s.bound {
		return ErrNotBound
	}
	s.resetTransientState()
	s.sendRemain = nil
	s.recvDst = nil
	s.recvFilled = 0
	s.ns, s.nr = 0, 0
	s.needResync = true
	s.needReset = false
	s.needCIP = false
	return s.runLoop(t)
}

// NegotiateIFSD emits an S(IFS REQ) carrying newIFSD and awaits its
// response.
func (s *Session) NegotiateIFSD(t transport.Transport, newIFSD int) error {
	if !s.bound {
		return ErrNotBound
	}
	if newIFSD <= 0 || newIFSD == 0xFF || newIFSD > s.dialect.IFSMax {
		return ErrInvalidArgument
	}
	s.resetTransientState()
	s.sendRemain = nil
	s.recvDst = nil
	s.recvFilled = 0
	s.needReset = false
	s.needCIP = false
	s.needResync = false
	s.pendingIFSD = newIFSD
	s.needIFSDSync = true
	err := s.runLoop(t)
	if err == nil {
		s.ifsd = newIFSD
	}
	return err
}

// GetATR drives the boot handshake if it has not yet run, then copies
// the captured ATR into buf.
func (s *Session) GetATR(t transport.Transport, buf []byte) (int, error) {
	if !s.bound {
		return 0, ErrNotBound
	}
	if s.bootPending() {
		s.resetTransientState()
		s.sendRemain = nil
		s.recvDst = nil
		s.recvFilled = 0
		if err := s.runLoop(t); err != nil {
			return 0, err
		}
	}
	if len(buf) < s.atrLength {
		return 0, ErrBufferTooSmall
	}
	n := copy(buf, s.atr[:s.atrLength])
	return n, nil
}
