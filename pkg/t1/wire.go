package t1

import (
	"time"

	"github.com/t1proto/ese-link/internal/checksum"
	"github.com/t1proto/ese-link/pkg/transport"
)

const pollInterval = 2 * time.Millisecond

// sendBlock writes a fully-formed block (header+payload+checksum,
// already in s.buf) to the transport. Fails with KindIOError if the
// underlying write is short or errors.
func (s *Session) sendBlock(t transport.Transport) error {
	want := s.buf.Bytes()
	n, err := t.Write(want)
	if err != nil || n != len(want) {
		s.logger.WithError(err).Debug("[TRANSPORT][TX] short or failed write")
		return newErr(KindIOError, "short or failed block write")
	}
	s.logger.WithField("len", n).Debug("[TRANSPORT][TX] block sent")
	return nil
}

// recvBlock implements the byte-level receive algorithm from §4.2:
// poll on a 2ms cadence against an absolute deadline for the NAD
// byte, then read header, payload and checksum. wtx is consumed
// (reset to 1) by the caller after this returns, per invariant 4.
func (s *Session) recvBlock(t transport.Transport) (block, error) {
	s.buf.Reset()
	deadline := time.Now().Add(time.Duration(s.bwtMs*s.wtx) * time.Millisecond)

	one := make([]byte, 1)
	nadSeen := false
	for !nadSeen {
		if time.Now().After(deadline) {
			s.metrics.incTimeout()
			return block{}, newErr(KindTimeout, "no NAD byte before deadline")
		}
		n, err := t.Read(one)
		if err != nil {
			return block{}, newErr(KindIOError, "transport read failed")
		}
		if n == 0 {
			if w := t.Waiter(); w != nil {
				w.Wait(deadline)
			} else {
				time.Sleep(pollInterval)
			}
			continue
		}
		if one[0] == s.nadc {
			nadSeen = true
			s.buf.Append(one[0], nil)
		}
		// Bytes that don't match nadc are discarded silently: they
		// are either line noise or a stray byte from a previous,
		// already-abandoned exchange.
	}

	// PCB
	if _, err := s.readExactly(t, 1); err != nil {
		return block{}, err
	}
	pcb := s.buf.Bytes()[1]

	// Length field (1 or 2 bytes, big-endian for extended).
	lenBytes, err := s.readExactly(t, s.dialect.LenWidth)
	if err != nil {
		return block{}, err
	}
	declaredLen := 0
	for _, b := range lenBytes {
		declaredLen = declaredLen<<8 | int(b)
	}
	if declaredLen >= s.dialect.InvalidLen {
		return block{}, newErr(KindBadMessage, "reserved invalid length value")
	}
	if s.buf.Cap()-s.buf.Len()-s.dialect.ChecksumLen() < declaredLen {
		return block{}, newErr(KindMessageTooLarge, "declared payload overruns buffer")
	}

	var inf []byte
	if declaredLen > 0 {
		inf, err = s.readExactly(t, declaredLen)
		if err != nil {
			return block{}, err
		}
	}

	chk, err := s.readExactly(t, s.dialect.ChecksumLen())
	if err != nil {
		return block{}, err
	}

	if !s.verifyChecksum(chk) {
		s.metrics.incChecksumErr()
		return block{}, newErr(KindRemoteIOError, "checksum mismatch")
	}

	b := decodePCB(pcb)
	b.Inf = inf
	return b, nil
}

// readExactly reads n more bytes (appending to s.buf) or returns
// bad_message on a short read before the expected span completes; it
// does not itself enforce the overall deadline beyond a per-byte
// retry budget, since by this point the NAD byte has already been
// seen and the remaining bytes of one block are expected imminently.
func (s *Session) readExactly(t transport.Transport, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	start := s.buf.Len()
	tmp := make([]byte, 1)
	got := 0
	misses := 0
	const maxMisses = 5000 // bounds the wait for the remainder of a block once NAD has been seen
	for got < n {
		rn, err := t.Read(tmp)
		if err != nil {
			return nil, newErr(KindIOError, "transport read failed")
		}
		if rn == 0 {
			misses++
			if misses > maxMisses {
				return nil, newErr(KindBadMessage, "short read before header/payload completed")
			}
			time.Sleep(pollInterval)
			continue
		}
		if !s.buf.Append(tmp[0], nil) {
			return nil, newErr(KindMessageTooLarge, "block buffer overrun")
		}
		got++
	}
	return s.buf.Bytes()[start : start+n], nil
}

// verifyChecksum recomputes the checksum over the buffered
// header+payload and compares against the trailing chk bytes just
// read (passed separately since they were already appended to buf by
// readExactly; recompute over buf minus those trailing bytes).
func (s *Session) verifyChecksum(chk []byte) bool {
	span := s.buf.Bytes()[:s.buf.Len()-len(chk)]
	if s.chkAlgo == checksum.LRC {
		want := checksum.LRC8(span)
		return want == chk[0]
	}
	got := checksum.Compute16(s.dialect.CRCIsX25, span)
	recv := uint16(chk[0])<<8 | uint16(chk[1])
	return got == recv
}

// appendChecksum computes and appends the checksum over the already
// buffered header+payload.
func (s *Session) appendChecksum() {
	span := s.buf.Bytes()
	if s.chkAlgo == checksum.LRC {
		s.buf.Append(checksum.LRC8(span), nil)
		return
	}
	v := checksum.Compute16(s.dialect.CRCIsX25, span)
	s.buf.Append(byte(v>>8), nil)
	s.buf.Append(byte(v), nil)
}
