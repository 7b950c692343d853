// Package gpiowait provides the extended-variant "GPIO rising-edge
// line-event" wait source mentioned in the T=1 transport adapter: a
// board can wire a data-ready line from the eSE, and the device may
// wait on that edge instead of pure 2ms polling, with identical
// overall timeout semantics.
//
// Grounded on doismellburning-samoyed's use of
// github.com/warthog618/go-gpiocdev for GPIO character-device line
// events.
package gpiowait

import (
	"time"

	"github.com/t1proto/ese-link/pkg/transport"
	"github.com/warthog618/go-gpiocdev"
)

// Line waits on a single GPIO line configured for rising-edge events.
type Line struct {
	line   *gpiocdev.Line
	events chan gpiocdev.LineEvent
}

// Open requests offset on chipName as a rising-edge event line.
func Open(chipName string, offset int) (*Line, error) {
	events := make(chan gpiocdev.LineEvent, 1)
	l, err := gpiocdev.RequestLine(chipName, offset,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case events <- evt:
			default:
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Line{line: l, events: events}, nil
}

// Wait implements transport.Waiter: blocks until an edge arrives or
// deadline passes.
func (l *Line) Wait(deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-l.events:
		return true
	case <-timer.C:
		return false
	}
}

// Close releases the requested GPIO line.
func (l *Line) Close() error {
	return l.line.Close()
}

var _ transport.Waiter = (*Line)(nil)
