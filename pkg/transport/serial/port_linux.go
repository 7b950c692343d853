// Package serial is the Linux character-device Transport driver: a
// thin termios-configured wrapper around a tty/USB-CDC node, the kind
// of device the T=1 engine actually runs over.
//
// Grounded on Daedaluz-goserial's ioctl/termios approach (port_linux.go,
// ioctl_linux.go), rebuilt on golang.org/x/sys/unix directly rather
// than vendoring that package, since x/sys is already part of this
// module's dependency set.
package serial

import (
	"os"

	"github.com/t1proto/ese-link/pkg/transport"
	"golang.org/x/sys/unix"
)

func init() {
	transport.Register("serial", Open)
}

// Port is a raw-mode serial character device.
type Port struct {
	f *os.File
}

// Open opens devicePath (e.g. "/dev/ttyUSB0") and puts it into raw,
// 8N1 mode with no flow control. Baud rate is fixed at 115200; the
// eSE links this driver targets do not negotiate it at the OS level.
func Open(devicePath string) (transport.Transport, error) {
	f, err := os.OpenFile(devicePath, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())

	t, err := unix.IoctlGetTermios(fd, ioctlGets)
	if err != nil {
		f.Close()
		return nil, err
	}
	// Raw mode: no echo, no canonical processing, no signal chars,
	// 8 data bits, no parity, one stop bit, no flow control.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	setSpeed(t, unix.B115200)

	if err := unix.IoctlSetTermios(fd, ioctlSets, t); err != nil {
		f.Close()
		return nil, err
	}
	return &Port{f: f}, nil
}

func (p *Port) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *Port) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *Port) Close() error                { return p.f.Close() }

// Waiter returns nil: a bare tty has no GPIO data-ready line. Extended
// dialect sessions that have one should pair this transport with
// pkg/transport/gpiowait via WithWaiter.
func (p *Port) Waiter() transport.Waiter { return nil }

// WithWaiter wraps an existing Port-backed Transport to also expose a
// GPIO rising-edge waiter, for boards where one is wired up.
func WithWaiter(t transport.Transport, w transport.Waiter) transport.Transport {
	return &waited{Transport: t, w: w}
}

type waited struct {
	transport.Transport
	w transport.Waiter
}

func (w *waited) Waiter() transport.Waiter { return w.w }
