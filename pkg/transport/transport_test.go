package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubTransport struct{}

func (stubTransport) Read(p []byte) (int, error)  { return 0, nil }
func (stubTransport) Write(p []byte) (int, error) { return len(p), nil }
func (stubTransport) Waiter() Waiter              { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("stub-test", func(devicePath string) (Transport, error) {
		return stubTransport{}, nil
	})

	tr, err := New("stub-test", "/dev/null")
	assert.NoError(t, err)
	assert.IsType(t, stubTransport{}, tr)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New("does-not-exist", "/dev/null")
	assert.Error(t, err)
}
