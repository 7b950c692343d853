// Package config loads per-session T=1 defaults from an ini file,
// grounded on the teacher's own pkg/config package and its
// gopkg.in/ini.v1-based EDS parsing (pkg/od/parser_v1.go) — repurposed
// here to load session defaults instead of an Electronic Data Sheet.
package config

import (
	"github.com/t1proto/ese-link/pkg/t1"
	"gopkg.in/ini.v1"
)

// SessionConfig holds the subset of Dialect/Session fields a deployment
// wants to override from a file instead of compiling them in.
type SessionConfig struct {
	Dialect      string
	Device       string
	SrcAddr      uint8
	DstAddr      uint8
	BWTMs        int
	IFSC         int
	IFSD         int
	WTXMaxValue  int
	WTXMaxRounds int
}

// Default returns the classic dialect's baseline, used for any field
// absent from the ini file.
func Default() SessionConfig {
	return SessionConfig{
		Dialect:      "classic",
		Device:       "/dev/ttyUSB0",
		SrcAddr:      2,
		DstAddr:      1,
		BWTMs:        t1.Classic.DefaultBWTMs,
		IFSC:         t1.Classic.DefaultIFSC,
		IFSD:         t1.Classic.DefaultIFSD,
		WTXMaxValue:  t1.Classic.WTXMaxValue,
		WTXMaxRounds: t1.Classic.WTXMaxRounds,
	}
}

// Load reads path (ini format, section [session]) over the defaults.
func Load(path string) (SessionConfig, error) {
	cfg := Default()
	f, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}
	sec := f.Section("session")
	cfg.Dialect = sec.Key("dialect").MustString(cfg.Dialect)
	cfg.Device = sec.Key("device").MustString(cfg.Device)
	cfg.SrcAddr = uint8(sec.Key("src_addr").MustUint(uint(cfg.SrcAddr)))
	cfg.DstAddr = uint8(sec.Key("dst_addr").MustUint(uint(cfg.DstAddr)))
	cfg.BWTMs = sec.Key("bwt_ms").MustInt(cfg.BWTMs)
	cfg.IFSC = sec.Key("ifsc").MustInt(cfg.IFSC)
	cfg.IFSD = sec.Key("ifsd").MustInt(cfg.IFSD)
	cfg.WTXMaxValue = sec.Key("wtx_max_value").MustInt(cfg.WTXMaxValue)
	cfg.WTXMaxRounds = sec.Key("wtx_max_rounds").MustInt(cfg.WTXMaxRounds)
	return cfg, nil
}

// ResolveDialect maps the configured dialect name to the t1.Dialect
// record it parameterizes, applying any per-field overrides from cfg.
func (cfg SessionConfig) ResolveDialect() t1.Dialect {
	d := t1.Classic
	if cfg.Dialect == "extended" {
		d = t1.Extended
	}
	d.DefaultBWTMs = cfg.BWTMs
	d.DefaultIFSC = cfg.IFSC
	d.DefaultIFSD = cfg.IFSD
	d.WTXMaxValue = cfg.WTXMaxValue
	d.WTXMaxRounds = cfg.WTXMaxRounds
	return d
}
