package t1

// scanATR parses the captured ATR buffer to refresh ifsc and bwtMs,
// per §4.4.4. Bounds violations leave the session's current defaults
// untouched rather than panicking or producing partial state.
func (s *Session) scanATR() {
	if s.dialect.SupportsCIPSWR {
		s.scanATRExtended()
		return
	}
	s.scanATRClassic()
}

// scanATRClassic walks the ISO-7816-3 historical-byte chain: T0
// encodes presence of TA/TB/TC/TD for the first interface byte group;
// iterate the TDi chain looking for the first TA of protocol 1
// (T=1), which carries IFSC. The trailing TCK byte's XOR with the
// running XOR over T0..historical bytes must be zero, or the ATR is
// left unparsed.
func (s *Session) scanATRClassic() {
	a := s.atr[:s.atrLength]
	if len(a) < 2 {
		return
	}
	t0 := a[0]
	idx := 1
	running := t0
	protocol := 0
	ifsc, haveIFSC := 0, false
	for {
		hasTA := t0&0x10 != 0
		hasTB := t0&0x20 != 0
		hasTC := t0&0x40 != 0
		hasTD := t0&0x80 != 0

		var ta byte
		haveTA := false
		if hasTA {
			if idx >= len(a) {
				return
			}
			ta = a[idx]
			haveTA = true
			running ^= ta
			idx++
		}
		if hasTB {
			if idx >= len(a) {
				return
			}
			running ^= a[idx]
			idx++
		}
		if hasTC {
			if idx >= len(a) {
				return
			}
			running ^= a[idx]
			idx++
		}
		if haveTA && protocol == 1 && !haveIFSC {
			ifsc, haveIFSC = int(ta), true
		}
		if !hasTD {
			break
		}
		if idx >= len(a) {
			return
		}
		td := a[idx]
		running ^= td
		idx++
		t0 = td
		protocol = int(td & 0x0F)
	}
	// Historical bytes: T0's low nibble gives their count; fold each
	// into running and step past them to reach TCK.
	histLen := int(a[0] & 0x0F)
	if idx+histLen > len(a) {
		return
	}
	for i := 0; i < histLen; i++ {
		running ^= a[idx]
		idx++
	}
	if idx >= len(a) {
		return
	}
	tck := a[idx]
	if running^tck != 0 {
		return
	}
	if haveIFSC {
		s.ifsc = ifsc
	}
}

// scanATRExtended parses the fixed extended-variant layout: IIN
// length byte, IIN bytes, PLP length byte, PLP bytes, then 2 bytes
// BWT and 2 bytes IFSC, both big-endian.
func (s *Session) scanATRExtended() {
	a := s.atr[:s.atrLength]
	idx := 0
	if idx >= len(a) {
		return
	}
	iinLen := int(a[idx])
	idx++
	if idx+iinLen > len(a) {
		return
	}
	idx += iinLen
	if idx >= len(a) {
		return
	}
	plpLen := int(a[idx])
	idx++
	if idx+plpLen > len(a) {
		return
	}
	idx += plpLen
	if idx+4 > len(a) {
		return
	}
	bwt := int(a[idx])<<8 | int(a[idx+1])
	ifsc := int(a[idx+2])<<8 | int(a[idx+3])
	s.bwtMs = bwt
	s.ifsc = ifsc
}
