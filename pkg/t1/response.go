package t1

// handleResponse implements §4.4.1: applies the transition for a
// response matching our own pending request.
func (s *Session) handleResponse(rx block) (bool, error) {
	switch rx.SKind {
	case sIFS:
		if len(rx.Inf) != 1 && len(rx.Inf) != 2 {
			s.halt = true
			return true, newErr(KindBadMessage, "malformed IFS response length")
		}
		s.needIFSDSync = false
		if s.pendingIFSD != 0 {
			s.ifsd = s.pendingIFSD
		} else {
			s.ifsd = 254
		}

	case sSWR:
		s.needReset = false
		if s.dialect.SupportsCIPSWR {
			s.needCIP = true
		} else {
			// Classic has no separate CIP exchange: the RESET response
			// itself carries the ATR payload, the same way CIP carries
			// it for extended.
			n := len(rx.Inf)
			if n > 32 {
				n = 32
			}
			s.atr = append(s.atr[:0], rx.Inf[:n]...)
			s.atrLength = n
			s.scanATR()
			s.pendingIFSD = 254
			s.needIFSDSync = true
		}
		s.metrics.incReset()

	case sCIP:
		s.needCIP = false
		n := len(rx.Inf)
		if n > 32 {
			n = 32
		}
		s.atr = append(s.atr[:0], rx.Inf[:n]...)
		s.atrLength = n
		s.scanATR()
		s.pendingIFSD = 254
		s.needIFSDSync = true

	case sResync:
		s.needResync = false
		s.ns, s.nr = 0, 0
		s.metrics.incResync()

	default:
		s.halt = true
		return true, newErr(KindBadMessage, "response to a request we never emitted")
	}

	if len(s.recvDst) == 0 && !s.bootPending() {
		// Boot/reset path: no APDU data was expected, and no further
		// one-shot flag is armed, so the preamble (possibly several
		// chained rounds: RESET/CIP -> IFS) has run to completion and
		// concludes the call transparently (§4.4.5).
		s.halt = true
		return true, nil
	}

	s.retries = 3
	return false, nil
}

// handleCardRequest implements §4.4.2: applies the transition for a
// card-initiated S-block and, if accepted, arms reqresp so the next
// iteration emits the matching response.
func (s *Session) handleCardRequest(rx block) (bool, error) {
	switch rx.SKind {
	case sResync:
		if s.dialect.SupportsCIPSWR {
			s.halt = true
			return true, newErr(KindUnsupported, "card-initiated RESYNC is classic-only")
		}
		if len(rx.Inf) != 0 {
			s.halt = true
			return true, newErr(KindBadMessage, "RESYNC request must carry no payload")
		}
		s.ns, s.nr = 0, 0
		s.respKind, s.respPayload = sResync, nil
		s.reqresp = true
		return false, nil

	case sIFS:
		if !validIFSLen(s.dialect, len(rx.Inf)) {
			s.halt = true
			return true, newErr(KindBadMessage, "malformed IFS request length")
		}
		v := decodeIFSPayload(rx.Inf)
		if v == 0 || v == 0xFF || v >= 4090 {
			s.halt = true
			return true, newErr(KindBadMessage, "invalid IFS value")
		}
		s.ifsc = v
		s.respKind, s.respPayload = sIFS, rx.Inf
		s.reqresp = true
		return false, nil

	case sAbort:
		if len(rx.Inf) != 0 {
			s.halt = true
			return true, newErr(KindBadMessage, "ABORT request must carry no payload")
		}
		s.aborted = true
		s.sendRemain = nil
		s.recvFilled = 0
		return false, nil

	case sWTX:
		if len(rx.Inf) != 1 {
			s.halt = true
			return true, newErr(KindBadMessage, "WTX request must carry exactly one byte")
		}
		v := int(rx.Inf[0])
		if v > s.wtxMaxValue {
			v = s.wtxMaxValue
		}
		s.wtx = v
		s.wtxRounds--
		s.metrics.incWTXRound()
		if s.wtxRounds <= 0 {
			s.retries = 0
			s.halt = true
			return true, newErr(KindTimeout, "WTX rounds exhausted")
		}
		s.respKind, s.respPayload = sWTX, rx.Inf
		s.reqresp = true
		return false, nil

	default:
		s.halt = true
		return true, newErr(KindUnsupported, "unknown card-initiated S-block kind")
	}
}

// validIFSLen checks the length discipline from §4.4.2: 1 byte for
// classic, 1 or 2 bytes for extended.
func validIFSLen(d Dialect, n int) bool {
	if !d.SupportsCIPSWR {
		return n == 1
	}
	return n == 1 || n == 2
}
