package channel

import (
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"
)

const (
	// NumChannels is the number of ITM stimulus ports.
	NumChannels = 32
	// MaxNameLength is the longest channel name kept, in bytes.
	MaxNameLength = 29
)

// Color is an RGBA channel colour.
type Color struct {
	R, G, B, A uint8
}

// ParseColor parses a colour in "#rrggbb" or "#rrggbbaa" form. Alpha defaults
// to 255.
func ParseColor(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xFF
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// String formats the colour as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// IsZero reports whether no colour was set.
func (c Color) IsZero() bool {
	return c == Color{}
}

// Channel is the configuration of one stimulus port.
type Channel struct {
	Enabled bool
	Name    string
	Color   Color
}

// Registry holds the configuration of all channels. It is safe for concurrent
// use: the decode goroutine reads it while a front-end may update it.
type Registry struct {
	mu       sync.RWMutex
	channels [NumChannels]Channel
}

// New creates a registry with all channels disabled and named by their index.
func New() *Registry {
	r := &Registry{}
	for i := range r.channels {
		r.channels[i].Name = strconv.Itoa(i)
	}
	return r
}

func checkIndex(index int) {
	if index < 0 || index >= NumChannels {
		panic(fmt.Sprintf("channel: index %d out of range", index))
	}
}

func boundName(index int, name string) string {
	if name == "" {
		return strconv.Itoa(index)
	}
	if len(name) <= MaxNameLength {
		return name
	}
	// cut on a rune boundary
	n := MaxNameLength
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}

// Set configures a channel in one call. An empty name resets the name to the
// channel index.
func (r *Registry) Set(index int, enabled bool, name string, color Color) {
	checkIndex(index)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[index] = Channel{Enabled: enabled, Name: boundName(index, name), Color: color}
}

// Get returns a copy of a channel's configuration.
func (r *Registry) Get(index int) Channel {
	checkIndex(index)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[index]
}

func (r *Registry) Enabled(index int) bool {
	checkIndex(index)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[index].Enabled
}

func (r *Registry) SetEnabled(index int, enabled bool) {
	checkIndex(index)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[index].Enabled = enabled
}

func (r *Registry) Name(index int) string {
	checkIndex(index)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[index].Name
}

// SetName sets a channel name, truncated to MaxNameLength bytes.
func (r *Registry) SetName(index int, name string) {
	checkIndex(index)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[index].Name = boundName(index, name)
}

func (r *Registry) Color(index int) Color {
	checkIndex(index)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[index].Color
}

func (r *Registry) SetColor(index int, color Color) {
	checkIndex(index)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[index].Color = color
}

// EnabledCount returns the number of enabled channels.
func (r *Registry) EnabledCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.channels {
		if c.Enabled {
			n++
		}
	}
	return n
}

// LabelWidth returns the length of the longest channel name, for column
// alignment.
func (r *Registry) LabelWidth() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w := 0
	for _, c := range r.channels {
		w = max(w, len(c.Name))
	}
	return w
}
