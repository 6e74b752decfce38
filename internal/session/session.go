// Package session ties a trace transport to the decode pipeline: a reader
// goroutine fills the packet queue and the caller drains it into the trace
// line store or a profile histogram.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"swotrace/internal/channel"
	"swotrace/internal/common"
	"swotrace/internal/itm"
	"swotrace/internal/profile"
	"swotrace/internal/queue"
	"swotrace/internal/tpiu"
	"swotrace/internal/tracelog"
	"swotrace/internal/transport"
)

// CloseTimeout is how long Close waits for the reader goroutine.
const CloseTimeout = time.Second

// ErrCloseTimeout is returned by Close when the reader did not exit in time.
var ErrCloseTimeout = errors.New("session: reader did not stop")

// Option configures a Session.
type Option func(*Session)

// WithCapacity sets the packet queue capacity.
func WithCapacity(n int) Option {
	return func(s *Session) { s.capacity = n }
}

// WithLogger attaches a logger to the session and its components.
func WithLogger(l common.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock sets the clock used to timestamp packets.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithDataSize sets the ITM word size (1, 2, 4 or itm.DataSizeAuto).
func WithDataSize(size int) Option {
	return func(s *Session) { s.dataSize = size }
}

// WithStructured routes the channels selected by isStructured through dec.
func WithStructured(dec tracelog.StructuredDecoder, isStructured func(uint8) bool) Option {
	return func(s *Session) {
		s.structured = dec
		s.isStructured = isStructured
	}
}

// WithPacketHook calls fn with every packet drained by Process, before it is
// decoded.
func WithPacketHook(fn func(ts float64, data []byte)) Option {
	return func(s *Session) { s.hook = fn }
}

// WithTPIU strips TPIU formatter frames from the packets and decodes the
// bytes of source id only.
func WithTPIU(id uint8) Option {
	return func(s *Session) { s.tpiuID = id }
}

// WithRegistry shares an existing channel registry.
func WithRegistry(r *channel.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// Session owns all state of one trace capture. Process, ProcessProfile and
// SetDataSize must be called from a single goroutine; the counters, the
// registry and the store may be read from any goroutine.
type Session struct {
	log          common.Logger
	clock        clock.Clock
	capacity     int
	dataSize     int
	structured   tracelog.StructuredDecoder
	isStructured func(uint8) bool
	hook         func(ts float64, data []byte)
	tpiuID       uint8

	queue     *queue.Queue
	decoder   *itm.Decoder
	registry  *channel.Registry
	store     *tracelog.Store
	assembler *tracelog.Assembler
	sampler   *profile.Sampler
	deformat  *tpiu.Deformatter
	unwrapped []byte

	epoch    time.Time
	decoding atomic.Bool
	packets  atomic.Uint64
	notify   chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	tr      transport.Transport
	done    chan struct{}
	err     error
}

// New creates an idle session.
func New(opts ...Option) *Session {
	s := &Session{
		log:      common.NewNoOpLogger(),
		clock:    clock.New(),
		capacity: queue.DefaultCapacity,
		dataSize: 1,
		notify:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = channel.New()
	}
	s.queue = queue.New(s.capacity)
	s.store = tracelog.NewStore()
	s.decoder = itm.NewDecoder()
	s.decoder.SetDataSize(s.dataSize)
	s.assembler = tracelog.NewAssembler(s.store, s.registry, s.structured, s.isStructured)
	s.sampler = profile.NewSampler()
	components := []*common.Component{&s.decoder.Component, &s.assembler.Component, &s.sampler.Component}
	if s.tpiuID != 0 {
		s.deformat = tpiu.NewDeformatter(s.tpiuID)
		components = append(components, &s.deformat.Component)
	}
	for _, c := range components {
		_ = c.LoggerAttachPt().ReplaceFirst(s.log)
	}
	_ = s.decoder.PayloadOut.Attach(s.assembler)
	s.decoding.Store(true)
	s.epoch = s.clock.Now()
	return s
}

// Registry returns the channel registry.
func (s *Session) Registry() *channel.Registry { return s.registry }

// Store returns the trace line store.
func (s *Session) Store() *tracelog.Store { return s.store }

// Start launches the reader goroutine on tr. Starting a running session is a
// no-op and tr is left untouched.
func (s *Session) Start(ctx context.Context, tr transport.Transport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.queue.Overflow(true)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.tr = tr
	s.done = done
	s.err = nil

	g.Go(func() error {
		return s.readLoop(gctx, tr)
	})
	go func() {
		err := g.Wait()
		s.mu.Lock()
		s.err = err
		s.running = false
		s.mu.Unlock()
		switch {
		case errors.Is(err, io.EOF):
			s.log.Info("end of trace data")
		case err != nil:
			s.log.Error(err)
		}
		close(done)
	}()
	s.log.Debug("trace reader started")
	return nil
}

func (s *Session) readLoop(ctx context.Context, tr transport.Transport) error {
	var buf [queue.PacketSize]byte
	for {
		n, err := tr.ReadContext(ctx, buf[:])
		if n > 0 {
			s.queue.Enqueue(buf[:n], s.clock.Since(s.epoch).Seconds())
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read trace: %w", err)
		}
	}
}

// Running reports whether the reader goroutine is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Notify returns a channel signalled after packets are queued.
func (s *Session) Notify() <-chan struct{} {
	return s.notify
}

// Done returns a channel closed when the reader of the most recent Start
// exits. It is nil before the first Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error that ended the reader, nil if it was stopped through
// its context or Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the reader and closes the transport. It returns
// ErrCloseTimeout if the reader does not exit within CloseTimeout.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel, tr, done := s.cancel, s.tr, s.done
	s.cancel, s.tr = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	if err := tr.Close(); err != nil {
		s.log.Logf(common.SeverityWarning, "close transport: %v", err)
	}
	select {
	case <-done:
		return nil
	case <-s.clock.After(CloseTimeout):
		return ErrCloseTimeout
	}
}

// SetDecoding enables or disables decoding of drained packets. Disabled
// packets are discarded and the queue overflow count is cleared.
func (s *Session) SetDecoding(enabled bool) {
	s.decoding.Store(enabled)
}

// SetDataSize changes the ITM word size, see itm.Decoder.SetDataSize.
func (s *Session) SetDataSize(size int) {
	s.decoder.SetDataSize(size)
}

// DataSize returns the current ITM word size.
func (s *Session) DataSize() int {
	return s.decoder.DataSize()
}

// Process drains the queue into the trace line store and returns the number
// of packets drained.
func (s *Session) Process() int {
	n := s.queue.Drain(s.decoding.Load(), func(p *queue.Packet) {
		if s.hook != nil {
			s.hook(p.Timestamp, p.Bytes())
		}
		s.decoder.Decode(s.payload(p), p.Timestamp)
	})
	s.packets.Add(uint64(n))
	return n
}

// ProcessProfile drains the queue into h. It returns the samples added and
// the overflow frames seen during this call. A nil h discards the packets.
func (s *Session) ProcessProfile(h *profile.Histogram) (samples int, overflows uint32) {
	before := s.sampler.Overflows(false)
	n := s.queue.Drain(s.decoding.Load() && h != nil, func(p *queue.Packet) {
		samples += s.sampler.Process(s.payload(p), h)
	})
	s.packets.Add(uint64(n))
	return samples, s.sampler.Overflows(false) - before
}

// payload returns the ITM bytes of p. The result is valid until the next call.
func (s *Session) payload(p *queue.Packet) []byte {
	if s.deformat == nil {
		return p.Bytes()
	}
	s.unwrapped = s.deformat.Unwrap(s.unwrapped[:0], p.Bytes())
	return s.unwrapped
}

// Packets returns the total number of packets drained.
func (s *Session) Packets() uint64 {
	return s.packets.Load()
}

// PacketErrors returns the ITM protocol error count.
func (s *Session) PacketErrors(reset bool) uint32 {
	return s.decoder.PacketErrors(reset)
}

// Overflows returns the packet queue overflow count.
func (s *Session) Overflows(reset bool) uint32 {
	return s.queue.Overflow(reset)
}

// QueueLen returns the number of packets waiting to be processed.
func (s *Session) QueueLen() int {
	return s.queue.Len()
}

// LineCount returns the number of trace lines in the store.
func (s *Session) LineCount() int {
	return s.store.Len()
}

// ProfileOverflows returns the number of ITM overflow frames seen while
// profiling.
func (s *Session) ProfileOverflows(reset bool) uint32 {
	return s.sampler.Overflows(reset)
}

// Clear removes all trace lines and any partially decoded frame.
func (s *Session) Clear() {
	s.store.Clear()
	s.decoder.Reset()
	s.sampler.Reset()
	if s.deformat != nil {
		s.deformat.Reset()
	}
}
