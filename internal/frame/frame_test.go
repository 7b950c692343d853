package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/t1proto/ese-link/internal/checksum"
)

func TestAppendFoldsChecksum(t *testing.T) {
	buf := NewBuffer(8)
	acc := checksum.NewCCITT()
	n := buf.AppendSpan([]byte{10}, acc)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 0x40BA, acc.Value())
	assert.Equal(t, []byte{10}, buf.Bytes())
}

func TestAppendStopsAtCapacity(t *testing.T) {
	buf := NewBuffer(2)
	n := buf.AppendSpan([]byte{1, 2, 3}, nil)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, buf.Space())
}

func TestReset(t *testing.T) {
	buf := NewBuffer(4)
	buf.AppendSpan([]byte{1, 2}, nil)
	buf.Reset()
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 4, buf.Space())
}
