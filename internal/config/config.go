// Package config loads the trace viewer settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"swotrace/internal/channel"
	"swotrace/internal/itm"
	"swotrace/internal/queue"
	"swotrace/internal/tpiu"
	"swotrace/internal/transport"
)

// Transport kinds.
const (
	KindUSB  = "usb"
	KindTCP  = "tcp"
	KindFile = "file"
)

// Decode modes.
const (
	ModeText    = "text"
	ModeProfile = "profile"
)

// Transport selects where trace data comes from.
type Transport struct {
	Kind       string `toml:"kind"`
	Address    string `toml:"address"`
	Port       uint16 `toml:"port"`
	VID        uint16 `toml:"vid"`
	PID        uint16 `toml:"pid"`
	Interface  int    `toml:"interface"`
	Endpoint   uint8  `toml:"endpoint"`
	DevicePath string `toml:"device_path"`
	File       string `toml:"file"`
}

// Decode holds the decoder settings.
type Decode struct {
	DataSize   int    `toml:"data_size"`
	QueueSize  int    `toml:"queue_size"`
	Mode       string `toml:"mode"`
	CodeBase   uint32 `toml:"code_base"`
	CodeTop    uint32 `toml:"code_top"`
	Shift      uint   `toml:"bucket_shift"`
	// TPIUSource selects the formatter source ID carrying the ITM when the
	// TPIU runs in continuous mode. 0 means raw ITM.
	TPIUSource uint8  `toml:"tpiu_source,omitempty"`
}

// Channel configures one stimulus port.
type Channel struct {
	Index      int    `toml:"index"`
	Enabled    bool   `toml:"enabled"`
	Name       string `toml:"name,omitempty"`
	Color      string `toml:"color,omitempty"`
	Structured bool   `toml:"structured,omitempty"`
}

// Config is the complete settings file.
type Config struct {
	Transport Transport `toml:"transport"`
	Decode    Decode    `toml:"decode"`
	Channels  []Channel `toml:"channel"`
}

// Default returns the settings used when no file is given: the Black Magic
// Probe trace endpoint, 1 byte words and channel 0 enabled.
func Default() Config {
	usb := transport.DefaultUSBConfig()
	return Config{
		Transport: Transport{
			Kind:      KindUSB,
			Port:      2332,
			VID:       usb.VID,
			PID:       usb.PID,
			Interface: usb.Interface,
			Endpoint:  usb.Endpoint,
		},
		Decode: Decode{
			DataSize:  1,
			QueueSize: queue.DefaultCapacity,
			Mode:      ModeText,
			CodeTop:   0x100000,
			Shift:     2,
		},
		Channels: []Channel{{Index: 0, Enabled: true}},
	}
}

// Load reads a settings file. Keys missing from the file keep their default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes settings from r on top of Default.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys %s", strings.Join(keys, ", "))
	}
	cfg.Transport.Kind = strings.ToLower(strings.TrimSpace(cfg.Transport.Kind))
	cfg.Decode.Mode = strings.ToLower(strings.TrimSpace(cfg.Decode.Mode))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as TOML.
func (c Config) Save(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks the settings for values the decoder would reject.
func (c Config) Validate() error {
	var errs []error
	switch c.Transport.Kind {
	case KindUSB:
		if c.Transport.DevicePath != "" {
			if _, _, err := transport.ParseDevicePath(c.Transport.DevicePath); err != nil {
				errs = append(errs, err)
			}
		}
	case KindTCP:
		if c.Transport.Address == "" {
			errs = append(errs, errors.New("transport: tcp needs an address"))
		}
	case KindFile:
		if c.Transport.File == "" {
			errs = append(errs, errors.New("transport: file needs a path"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport: unknown kind %q", c.Transport.Kind))
	}
	if !itm.ValidDataSize(c.Decode.DataSize) {
		errs = append(errs, fmt.Errorf("decode: data_size %d is not 0, 1, 2 or 4", c.Decode.DataSize))
	}
	if c.Decode.Mode != ModeText && c.Decode.Mode != ModeProfile {
		errs = append(errs, fmt.Errorf("decode: unknown mode %q", c.Decode.Mode))
	}
	if c.Decode.Mode == ModeProfile && c.Decode.CodeTop <= c.Decode.CodeBase {
		errs = append(errs, fmt.Errorf("decode: code_top %#x not above code_base %#x", c.Decode.CodeTop, c.Decode.CodeBase))
	}
	if c.Decode.TPIUSource != 0 && !tpiu.ValidID(c.Decode.TPIUSource) {
		errs = append(errs, fmt.Errorf("decode: tpiu_source %#x out of range", c.Decode.TPIUSource))
	}
	seen := make(map[int]bool)
	for _, ch := range c.Channels {
		if ch.Index < 0 || ch.Index >= channel.NumChannels {
			errs = append(errs, fmt.Errorf("channel: index %d out of range", ch.Index))
			continue
		}
		if seen[ch.Index] {
			errs = append(errs, fmt.Errorf("channel: index %d listed twice", ch.Index))
		}
		seen[ch.Index] = true
		if ch.Color != "" {
			if _, err := channel.ParseColor(ch.Color); err != nil {
				errs = append(errs, fmt.Errorf("channel %d: %w", ch.Index, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Apply configures reg from the channel list. Channels not listed keep their
// settings. Call Validate first.
func (c Config) Apply(reg *channel.Registry) {
	for _, ch := range c.Channels {
		color, _ := channel.ParseColor(ch.Color)
		reg.Set(ch.Index, ch.Enabled, ch.Name, color)
	}
}

// IsStructured returns a predicate for the channels marked structured.
func (c Config) IsStructured() func(uint8) bool {
	var mask uint32
	for _, ch := range c.Channels {
		if ch.Structured && ch.Index >= 0 && ch.Index < channel.NumChannels {
			mask |= 1 << uint(ch.Index)
		}
	}
	return func(chanID uint8) bool {
		return chanID < channel.NumChannels && mask&(1<<chanID) != 0
	}
}

// USB returns the USB transport settings.
func (c Config) USB() transport.USBConfig {
	return transport.USBConfig{
		VID:        c.Transport.VID,
		PID:        c.Transport.PID,
		Interface:  c.Transport.Interface,
		Endpoint:   c.Transport.Endpoint,
		DevicePath: c.Transport.DevicePath,
	}
}
