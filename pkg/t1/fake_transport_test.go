package t1

import "github.com/t1proto/ese-link/pkg/transport"

// fakeTransport is a minimal scripted transport: Read drips
// pre-loaded bytes one at a time (mirroring how a real character
// device delivers a block), Write records each call verbatim. No
// Waiter, so recvBlock falls back to its sleep-based poll whenever
// readBuf is exhausted (an empty readBuf makes every receive time out).
type fakeTransport struct {
	writes  [][]byte
	readBuf []byte
	pos     int
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	f.writes = append(f.writes, cp)
	return len(p), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if f.pos >= len(f.readBuf) {
		return 0, nil
	}
	p[0] = f.readBuf[f.pos]
	f.pos++
	return 1, nil
}

func (f *fakeTransport) Waiter() transport.Waiter { return nil }

var _ transport.Transport = (*fakeTransport)(nil)
