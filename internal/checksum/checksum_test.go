package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCCITTSingle(t *testing.T) {
	acc := NewCCITT()
	acc.Single(10)
	assert.EqualValues(t, 0x40BA, acc.Value())
}

func TestLRC8(t *testing.T) {
	if got := LRC8([]byte{0x12, 0x00, 0x05, 0x00, 0xA4, 0x04, 0x00, 0x00}); got != 0xB7 {
		t.Errorf("LRC8 = %x, want b7", got)
	}
}

func TestLRC8Empty(t *testing.T) {
	assert.EqualValues(t, 0, LRC8(nil))
}

func TestCompute16Variants(t *testing.T) {
	span := []byte{0x12, 0x00, 0x05}
	ccitt := Compute16(false, span)
	x25 := Compute16(true, span)
	assert.NotEqual(t, ccitt, x25, "classic and extended CRC must use distinct parameters")
}
