package t1

import "github.com/t1proto/ese-link/internal/checksum"

// Dialect parameterizes the single T=1 state machine for the classic
// and extended variants, per the "dual-variant dispatch" design note:
// the fork between variants is data, not a second code path.
type Dialect struct {
	Name string

	// LenWidth is 1 (classic) or 2 (extended) bytes for the block
	// length field.
	LenWidth int

	// ChkAlgo selects LRC or CRC for this dialect.
	ChkAlgo checksum.Algo

	// IFSMax is the upper bound for IFSC/IFSD: 254 classic, 4093
	// extended.
	IFSMax int

	// MaxPayload is the largest INF span a block may carry: 254
	// classic, 4089 extended (leaves room for the reserved invalid
	// length values).
	MaxPayload int

	// InvalidLen is the reserved "declared length means bad_message"
	// sentinel: 255 classic, any value >= 4090 extended (checked as a
	// threshold, not a single value, for the extended case).
	InvalidLen int

	// SupportsCIPSWR is true for the extended dialect, which adds the
	// CIP and SWR S-block kinds used during the boot handshake.
	SupportsCIPSWR bool

	// CRCIsX25 selects the reflected X.25 CRC variant instead of
	// plain CCITT, when ChkAlgo is CRC. Kept distinct from
	// SupportsCIPSWR even though today only the extended dialect sets
	// both, so a future CRC-but-not-extended dialect wouldn't
	// silently pick up CIP/SWR support.
	CRCIsX25 bool

	// DefaultIFSC/DefaultIFSD are the dialect's pre-negotiation
	// defaults.
	DefaultIFSC int
	DefaultIFSD int

	// DefaultBWTMs is the dialect's default block-waiting timeout.
	DefaultBWTMs int

	// WTXMaxRounds is the default consecutive-WTX budget before the
	// session gives up (200 classic / 3 extended per spec §9's
	// unresolved-but-preserved rationale).
	WTXMaxRounds int

	// WTXMaxValue bounds the waiting-time multiplier a card may
	// request.
	WTXMaxValue int
}

// Classic is the 1-byte-length / LRC-or-CRC / <=254B dialect.
var Classic = Dialect{
	Name:         "classic",
	LenWidth:     1,
	ChkAlgo:      checksum.LRC,
	IFSMax:       254,
	MaxPayload:   254,
	InvalidLen:   255,
	DefaultIFSC:  32,
	DefaultIFSD:  32,
	DefaultBWTMs: 300,
	WTXMaxRounds: 200,
	WTXMaxValue:  1,
}

// Extended is the 2-byte-length / CRC / ~4KiB dialect with CIP/SWR.
var Extended = Dialect{
	Name:           "extended",
	LenWidth:       2,
	ChkAlgo:        checksum.CRC,
	IFSMax:         4093,
	MaxPayload:     4089,
	InvalidLen:     4090,
	SupportsCIPSWR: true,
	CRCIsX25:       true,
	DefaultIFSC:    64,
	DefaultIFSD:    64,
	DefaultBWTMs:   300,
	WTXMaxRounds:   3,
	WTXMaxValue:    1,
}

// HeaderLen is NAD + PCB + the length field width.
func (d Dialect) HeaderLen() int { return 2 + d.LenWidth }

// ChecksumLen is 1 for LRC, 2 for CRC.
func (d Dialect) ChecksumLen() int {
	if d.ChkAlgo == checksum.CRC {
		return 2
	}
	return 1
}

// BlockCapacity is the largest a full wire block can be under this
// dialect: header + max payload + checksum.
func (d Dialect) BlockCapacity() int {
	return d.HeaderLen() + d.MaxPayload + d.ChecksumLen()
}
