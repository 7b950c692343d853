package t1

import (
	"github.com/t1proto/ese-link/pkg/transport"
)

// runLoop is the dispatch loop from §4.4: each iteration composes and
// emits exactly one block, receives the reply, and applies the
// resulting transition, until halt is set or a terminal error occurs.
func (s *Session) runLoop(t transport.Transport) error {
	for {
		if s.halt {
			return nil
		}

		if err := s.emitNext(t); err != nil {
			return err
		}

		rx, err := s.recvBlock(t)
		s.wtx = 1 // invariant 4: consumed once per recv_block call
		if err != nil {
			if done, rerr := s.handleRecvError(err); done {
				return rerr
			}
			continue
		}

		done, rerr := s.handleReceived(rx)
		if done {
			return rerr
		}
	}
}

// emitNext evaluates the state flags in strict priority order and
// composes+sends exactly one block.
func (s *Session) emitNext(t transport.Transport) error {
	s.buf.Reset()
	s.lastEmittedWasS = false

	switch {
	case s.halt:
		return nil

	case s.nextRequestArmed():
		kind, payload := s.nextRequest()
		s.composeSRequest(kind, payload)
		s.pendingRequest = kind
		s.pendingRequestValid = true
		s.lastEmittedSKind, s.lastEmittedWasS = kind, true

	case s.reqresp:
		s.composeSResponse(s.respKind, s.respPayload)
		s.reqresp = false
		s.lastEmittedSKind, s.lastEmittedWasS = s.respKind, true

	case s.badcrc:
		s.composeR(rCRCError)

	case s.timeout:
		s.composeR(rOK)

	case len(s.sendRemain) > 0:
		s.composeNextIBlock()

	case s.aborted:
		return newErr(KindBrokenPipe, "card-initiated ABORT")

	default:
		s.composeR(rOK)
	}

	return s.sendBlock(t)
}

// nextRequestArmed reports whether any one-shot boot/sync flag needs
// to pre-empt normal dispatch.
func (s *Session) nextRequestArmed() bool {
	return s.needReset || s.needCIP || s.needResync || s.needIFSDSync
}

// nextRequest picks which one-shot request to emit, in boot-preamble
// order: CIP, then RESET/SWR, then RESYNC, then IFS — matching the
// "RESET/CIP -> IFS" preamble in §4.4.5. Both dialects emit the same
// soft-reset S-block kind (sSWR): §6's PCB table lists SWR as an
// extended-only addition to the S-block kind space, but §4.4.1 still
// names "RESET (classic)" as a distinct request the engine emits, and
// the only out-of-core recovery the spec allows is "invoking a
// soft-reset S-block" (§1) — so the classic "RESET" request and the
// extended "SWR" request are the same wire action under one name.
//
// needCIP is checked ahead of needReset: on a cold boot the extended
// dialect only ever arms needCIP (see session.go's init), so CIP goes
// out first with no preceding SWR round. needReset/SWR is reserved for
// the explicit reset-recovery path, which does not arm needCIP at the
// same time, so the ordering between the two never actually competes
// except transiently while SWR's own response handler is re-arming CIP.
func (s *Session) nextRequest() (sKind, []byte) {
	switch {
	case s.needCIP:
		return sCIP, nil
	case s.needReset:
		return sSWR, nil
	case s.needResync:
		return sResync, nil
	case s.needIFSDSync:
		v := s.pendingIFSD
		if v == 0 {
			v = 254
		}
		return sIFS, encodeIFSPayload(v)
	}
	return sResync, nil
}

// encodeIFSPayload encodes an IFS value as a 1-byte payload (classic)
// or 1-2 byte payload (extended uses 1 byte up to 254, 2 bytes above).
func encodeIFSPayload(v int) []byte {
	if v <= 0xFE {
		return []byte{byte(v)}
	}
	return []byte{byte(v >> 8), byte(v)}
}

func decodeIFSPayload(p []byte) int {
	if len(p) == 1 {
		return int(p[0])
	}
	return int(p[0])<<8 | int(p[1])
}

// composeSRequest builds NAD|PCB|LEN|INF and appends the checksum for
// an S-block request of kind carrying payload.
func (s *Session) composeSRequest(kind sKind, payload []byte) {
	s.composeHeader(encodeSPCB(true, kind), payload)
	s.appendChecksum()
}

// composeSResponse is the same framing for a response to a
// card-initiated request.
func (s *Session) composeSResponse(kind sKind, payload []byte) {
	s.composeHeader(encodeSPCB(false, kind), payload)
	s.appendChecksum()
}

// composeR builds an R-block with the given sub-kind and N(R) = nr.
func (s *Session) composeR(sub rKind) {
	s.composeHeader(encodeRPCB(s.nr, sub), nil)
	s.appendChecksum()
}

// composeNextIBlock builds the next I-block from sendRemain, chained
// if the remainder exceeds ifsc.
func (s *Session) composeNextIBlock() {
	n := len(s.sendRemain)
	chain := n > s.ifsc
	if chain {
		n = s.ifsc
	}
	payload := s.sendRemain[:n]
	s.composeHeader(encodeIPCB(s.ns, chain), payload)
	s.appendChecksum()
}

// composeHeader writes NAD, PCB, the dialect's length field, and the
// payload into buf, leaving the checksum for the caller to append.
func (s *Session) composeHeader(pcb byte, payload []byte) {
	s.buf.Append(s.nad, nil)
	s.buf.Append(pcb, nil)
	if s.dialect.LenWidth == 2 {
		s.buf.Append(byte(len(payload)>>8), nil)
	}
	s.buf.Append(byte(len(payload)), nil)
	s.buf.AppendSpan(payload, nil)
}

// handleRecvError applies §4.4's receive-failure handling. Returns
// (true, err) if the loop must terminate, (false, nil) to retry.
func (s *Session) handleRecvError(err error) (bool, error) {
	e, _ := err.(*Error)
	kind := KindIOError
	if e != nil {
		kind = e.Kind
	}

	switch kind {
	case KindRemoteIOError:
		if raw := s.buf.Bytes(); s.badcrc && len(raw) > 1 && raw[1]&0xEF == 0x81 {
			// We were already retransmitting under a checksum-error
			// signal and the card replied with its own
			// R(CHECKSUM_ERROR) again: unrecoverable.
			s.halt = true
			return true, err
		}
		s.retries--
		s.metrics.incRetries()
		s.badcrc = true
		if s.retries <= 0 {
			s.halt = true
			return true, newErr(KindTimeout, "checksum-error retries exhausted")
		}
		return false, nil

	case KindTimeout:
		s.retries--
		s.metrics.incRetries()
		wasBadCRC := s.badcrc
		s.timeout = true
		if wasBadCRC {
			s.badcrc = true
		}
		if s.retries <= 0 {
			s.halt = true
			return true, err
		}
		return false, nil

	default:
		s.retries = 0
		s.halt = true
		return true, err
	}
}

// handleReceived classifies a successfully received block by PCB and
// applies the resulting transition. Returns (true, err) if the loop
// must terminate.
func (s *Session) handleReceived(rx block) (bool, error) {
	switch rx.Kind {
	case blockI:
		return s.handleIBlock(rx)
	case blockR:
		return s.handleRBlock(rx)
	case blockS:
		return s.handleSBlock(rx)
	}
	s.halt = true
	return true, newErr(KindUnsupported, "unknown block kind")
}

func (s *Session) handleIBlock(rx block) (bool, error) {
	if len(s.sendRemain) > 0 {
		adv := s.ifsc
		if adv > len(s.sendRemain) {
			adv = len(s.sendRemain)
		}
		s.sendRemain = s.sendRemain[adv:]
		s.ns ^= 1
	}

	if rx.NS == s.nr {
		n := copy(s.recvDst[s.recvFilled:], rx.Inf)
		s.recvFilled += n
		s.recvSize += len(rx.Inf)
		s.nr ^= 1
	} else {
		// Duplicate: ack-able but not re-appended.
		s.recvSize += len(rx.Inf)
	}

	s.retries = 3
	s.wtxRounds = s.wtxMaxRounds

	if s.recvSize > s.recvMax {
		s.halt = true
		return true, newErr(KindMessageTooLarge, "recv_size exceeded recv_max")
	}

	if rx.Chain {
		// Must ack: next iteration's default emission is R(OK).
		return false, nil
	}

	// Final I-block of the response: transceive is complete.
	s.halt = true
	return true, nil
}

func (s *Session) handleRBlock(rx block) (bool, error) {
	switch rx.RSub {
	case rOK:
		if rx.NR != s.ns {
			adv := s.ifsc
			if adv > len(s.sendRemain) {
				adv = len(s.sendRemain)
			}
			s.sendRemain = s.sendRemain[adv:]
			s.ns ^= 1
			s.retries = 3
			return false, nil
		}
		s.retries--
		s.metrics.incRetries()
		if s.retries <= 0 {
			s.halt = true
			return true, newErr(KindTimeout, "R(OK) retries exhausted")
		}
		return false, nil

	case rCRCError:
		s.retries--
		s.metrics.incRetries()
		s.metrics.incChecksumErr()
		s.ns = rx.NR
		if s.retries <= 0 {
			s.halt = true
			return true, newErr(KindRemoteIOError, "card reported checksum error, retries exhausted")
		}
		return false, nil

	case rOtherError:
		s.halt = true
		return true, newErr(KindIOError, "card reported other R-block error")

	case rReserved:
		s.retries--
		s.metrics.incRetries()
		s.needResync = true
		return false, nil
	}
	s.halt = true
	return true, newErr(KindUnsupported, "unknown R-block sub-kind")
}

func (s *Session) handleSBlock(rx block) (bool, error) {
	if !rx.SRequest {
		if s.pendingRequestValid && rx.SKind == s.pendingRequest {
			s.pendingRequestValid = false
			return s.handleResponse(rx)
		}
		s.halt = true
		return true, newErr(KindBadMessage, "unexpected S-block response")
	}
	return s.handleCardRequest(rx)
}
