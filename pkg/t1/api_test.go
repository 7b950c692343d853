package t1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/t1proto/ese-link/internal/checksum"
)

// TestGetATRClassicBootHandshake drives the classic boot preamble: an
// S(SWR request)/S(SWR response) exchange whose response payload
// doubles as the ATR (classic has no separate CIP step), chained
// transparently into the IFSD announce round before returning.
func TestGetATRClassicBootHandshake(t *testing.T) {
	s := newBoundSession()
	s.needReset = true // simulate a fresh, never-booted session

	atrBytes := []byte{0x00, 0x00} // T0=0 (no interface/historical bytes), TCK=0
	swrResp := []byte{0x21, 0xEF, 0x02, 0x00, 0x00}
	swrResp = append(swrResp, lrcOf(swrResp))

	ifsResp := []byte{0x21, 0xE1, 0x01, 0xFE}
	ifsResp = append(ifsResp, lrcOf(ifsResp))

	tr := &fakeTransport{readBuf: append(append([]byte{}, swrResp...), ifsResp...)}

	out := make([]byte, 8)
	n, err := s.GetATR(tr, out)
	assert.NoError(t, err)
	assert.Equal(t, len(atrBytes), n)
	assert.Equal(t, atrBytes, out[:n])
	assert.False(t, s.needReset)
	assert.False(t, s.needIFSDSync)

	assert.Len(t, tr.writes, 2)
	assert.Equal(t, byte(0xCF), tr.writes[0][1], "SWR request PCB: request bit clear, kind=15")
	assert.Equal(t, byte(0xC1), tr.writes[1][1], "IFS announce chained after SWR before returning")
}

// TestGetATRExtendedBootHandshake drives the extended boot preamble: a
// cold-started session arms needCIP only (CIP goes out first, with no
// preceding SWR round — SWR is reserved for the explicit reset-recovery
// path), carrying the ATR; the engine then continues transparently into
// the IFSD announce round before returning to the caller. The CIP
// payload encodes IFSC=0x00FE and BWT=0x012C per §4.4.4's fixed layout.
func TestGetATRExtendedBootHandshake(t *testing.T) {
	s := New(Extended)
	assert.NoError(t, s.Bind(2, 1))
	assert.True(t, s.needCIP, "cold boot arms CIP directly, not SWR")
	assert.False(t, s.needReset)

	cipPayload := []byte{
		0x00,       // IIN length
		0x00,       // PLP length
		0x01, 0x2C, // BWT = 300
		0x00, 0xFE, // IFSC = 254
	}
	cipResp := append([]byte{0x21, 0xE4, 0x00, byte(len(cipPayload))}, cipPayload...)
	cipResp = append(cipResp, crc16X25(cipResp)...)

	ifsResp := []byte{0x21, 0xE1, 0x00, 0x01, 0xFE} // 2-byte length field
	ifsResp = append(ifsResp, crc16X25(ifsResp)...)

	tr := &fakeTransport{readBuf: append(append([]byte{}, cipResp...), ifsResp...)}

	out := make([]byte, 8)
	n, err := s.GetATR(tr, out)
	assert.NoError(t, err)
	assert.Equal(t, len(cipPayload), n)
	assert.Equal(t, cipPayload, out[:n])
	assert.Equal(t, 254, s.ifsc)
	assert.Equal(t, 300, s.bwtMs)
	assert.False(t, s.needCIP)
	assert.False(t, s.needIFSDSync)

	assert.Equal(t, byte(0xC4), tr.writes[0][1], "CIP request PCB, no SWR round first")
	assert.Equal(t, byte(0xC1), tr.writes[1][1], "IFS announce chained after CIP before returning")
}

func TestResyncClearsSequenceNumbers(t *testing.T) {
	s := newBoundSession()
	s.ns, s.nr = 1, 1

	resp := []byte{0x21, 0xE0, 0x00}
	resp = append(resp, lrcOf(resp))
	tr := &fakeTransport{readBuf: resp}

	err := s.Resync(tr)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.ns)
	assert.Equal(t, 0, s.nr)
	assert.Equal(t, byte(0xC0), tr.writes[0][1], "RESYNC request PCB")
}

func TestNegotiateIFSDUpdatesIFSDOnSuccess(t *testing.T) {
	s := newBoundSession()

	resp := []byte{0x21, 0xE1, 0x01, 0x40}
	resp = append(resp, lrcOf(resp))
	tr := &fakeTransport{readBuf: resp}

	err := s.NegotiateIFSD(tr, 64)
	assert.NoError(t, err)
	assert.Equal(t, 64, s.ifsd)
}

func TestNegotiateIFSDRejectsOutOfRangeValue(t *testing.T) {
	s := newBoundSession()
	err := s.NegotiateIFSD(&fakeTransport{}, 0xFF)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// TestTransceiveFatalLinkDead exercises the automatic single-retry
// wrapper: a transport that never delivers any bytes times out twice
// in a row (the second attempt armed as a reset), so Transceive
// surfaces ErrFatalLinkDead rather than the raw timeout.
func TestTransceiveFatalLinkDead(t *testing.T) {
	s := newBoundSession()
	s.bwtMs = 20 // keep the test fast; invariant 4 resets wtx to 1 regardless

	tr := &fakeTransport{}

	apdu := []byte{0x00, 0xA4, 0x04, 0x00}
	resp := make([]byte, 8)
	_, err := s.Transceive(tr, apdu, resp)
	assert.ErrorIs(t, err, ErrFatalLinkDead)
}

func crc16X25(span []byte) []byte {
	v := checksum.Compute16(true, span)
	return []byte{byte(v >> 8), byte(v)}
}
