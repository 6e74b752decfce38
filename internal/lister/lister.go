// Package lister runs a trace or profile capture to completion, printing
// what it decodes.
package lister

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"swotrace/internal/common"
	"swotrace/internal/config"
	"swotrace/internal/metrics"
	"swotrace/internal/printers"
	"swotrace/internal/profile"
	"swotrace/internal/session"
	"swotrace/internal/tracelog"
	"swotrace/internal/transport"
)

// Config holds the command line settings of a capture run.
type Config struct {
	Settings     config.Config
	Export       string        // CSV file written when the run ends
	Duration     time.Duration // 0 runs until cancelled or the data ends
	Reconnect    bool          // reopen the transport with backoff after a failure
	Dump         bool          // print raw packets
	Color        bool
	Filters      []tracelog.Filter
	Timeline     int // width of the per-channel timeline printed at the end, 0 for none
	Top          int // histogram rows printed in profile mode
	Logger       common.Logger
	OutputWriter io.Writer
	Registerer   prometheus.Registerer
	Clock        clock.Clock
	// Structured decodes the channels marked structured in Settings. Those
	// channels are printed as plain text when it is nil.
	Structured   tracelog.StructuredDecoder
}

func (c *Config) defaults() {
	if c.OutputWriter == nil {
		c.OutputWriter = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = common.NewNoOpLogger()
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Top == 0 {
		c.Top = 20
	}
}

// Open opens the transport described by t.
func Open(ctx context.Context, t config.Transport) (transport.Transport, error) {
	switch t.Kind {
	case config.KindTCP:
		return DialTCP(ctx, t)
	case config.KindFile:
		return transport.OpenFile(t.File)
	case config.KindUSB:
		return transport.OpenUSB(config.Config{Transport: t}.USB())
	}
	return nil, fmt.Errorf("unknown transport %q", t.Kind)
}

// DialTCP connects to the address and port of t.
func DialTCP(ctx context.Context, t config.Transport) (transport.Transport, error) {
	return transport.DialTCP(ctx, t.Address, t.Port)
}

// Run starts a capture in the mode selected by the settings.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Settings.Decode.Mode == config.ModeProfile {
		return RunProfile(ctx, cfg)
	}
	return RunTrace(ctx, cfg)
}

// runner holds the state shared by the trace and profile loops.
type runner struct {
	cfg  Config
	sess *session.Session
	warn *rate.Limiter
}

func newRunner(cfg Config, opts ...session.Option) (*runner, error) {
	cfg.defaults()
	set := cfg.Settings
	if err := set.Validate(); err != nil {
		return nil, err
	}
	opts = append([]session.Option{
		session.WithCapacity(set.Decode.QueueSize),
		session.WithDataSize(set.Decode.DataSize),
		session.WithLogger(cfg.Logger),
		session.WithClock(cfg.Clock),
	}, opts...)
	if set.Decode.TPIUSource != 0 {
		opts = append(opts, session.WithTPIU(set.Decode.TPIUSource))
	}
	if cfg.Structured != nil {
		opts = append(opts, session.WithStructured(cfg.Structured, set.IsStructured()))
	}
	r := &runner{
		cfg:  cfg,
		sess: session.New(opts...),
		warn: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	set.Apply(r.sess.Registry())
	if cfg.Registerer != nil {
		if err := metrics.Register(cfg.Registerer, r.sess, set.Transport.Kind); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// run opens the transport and calls process until the capture ends, with
// reconnects when enabled.
func (r *runner) run(ctx context.Context, process func()) error {
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	op := func() error {
		tr, err := Open(ctx, r.cfg.Settings.Transport)
		if err != nil {
			status := transport.StatusOf(err)
			r.sess.Store().AddStatus(tracelog.StatusProbe, err.Error(), int(status))
			r.cfg.Logger.Logf(common.SeverityWarning, "open %s transport: %v", r.cfg.Settings.Transport.Kind, err)
			if status == transport.StatusNoDevPath || !r.cfg.Reconnect {
				return backoff.Permanent(err)
			}
			return err
		}
		if ra, ok := tr.(interface{ RemoteAddr() net.Addr }); ok {
			r.cfg.Logger.Logf(common.SeverityInfo, "connected to %s", ra.RemoteAddr())
		}
		r.sess.Store().ClearStatus()
		if err := r.sess.Start(ctx, tr); err != nil {
			tr.Close()
			return backoff.Permanent(err)
		}
		err = r.loop(ctx, process)
		if cerr := r.sess.Close(); cerr != nil {
			r.cfg.Logger.Error(cerr)
		}
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case !r.cfg.Reconnect:
			return backoff.Permanent(err)
		}
		r.cfg.Logger.Logf(common.SeverityWarning, "trace stopped: %v", err)
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(eb, ctx))
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}

// loop processes packets until ctx is done or the reader exits. It returns
// the reader error.
func (r *runner) loop(ctx context.Context, process func()) error {
	done := r.sess.Done()
	for {
		select {
		case <-ctx.Done():
			process()
			return nil
		case <-done:
			process()
			return r.sess.Err()
		case <-r.sess.Notify():
			process()
		}
		r.checkCounters()
	}
}

func (r *runner) checkCounters() {
	errs := r.sess.PacketErrors(false)
	over := r.sess.Overflows(false)
	if (errs == 0 && over == 0) || !r.warn.Allow() {
		return
	}
	r.cfg.Logger.Logf(common.SeverityWarning, "%d ITM packet errors, %d queue overflows (data size %d)",
		errs, over, r.sess.DataSize())
}

func (r *runner) stats() printers.Stats {
	return printers.Stats{
		Packets:          int(r.sess.Packets()),
		PacketErrors:     r.sess.PacketErrors(false),
		QueueOverflows:   r.sess.Overflows(false),
		ProfileOverflows: r.sess.ProfileOverflows(false),
		Lines:            r.sess.LineCount(),
	}
}

// RunTrace captures trace lines and prints them as they complete. The store
// is exported to cfg.Export when the run ends.
func RunTrace(ctx context.Context, cfg Config) error {
	cfg.defaults()
	var opts []session.Option
	var pp *printers.PacketPrinter
	if cfg.Dump {
		pp = printers.NewPacketPrinter(cfg.OutputWriter)
		opts = append(opts, session.WithPacketHook(pp.PrintPacket))
	}
	r, err := newRunner(cfg, opts...)
	if err != nil {
		return err
	}
	if r.sess.Registry().EnabledCount() == 0 {
		cfg.Logger.Logf(common.SeverityWarning, "all channels are disabled, no lines will be printed")
	}
	lp := printers.NewLinePrinter(cfg.OutputWriter, r.sess.Registry(), cfg.Color)
	lp.SetFilters(cfg.Filters)

	runErr := r.run(ctx, func() {
		r.sess.Process()
		lp.PrintNew(r.sess.Store())
	})
	lp.Flush(r.sess.Store())
	if cfg.Timeline > 0 && !r.sess.Store().IsEmpty() {
		tl := tracelog.NewTimeline()
		tl.Rebuild(r.sess.Store(), r.sess.Registry())
		lp.PrintTimeline(tl, cfg.Timeline)
	}
	for _, m := range r.sess.Store().StatusMessages() {
		lp.ItemPrintLine(fmt.Sprintf("[%s] %s\n", m.Kind, m.Text))
	}
	lp.PrintStats(r.stats())

	if cfg.Export != "" {
		if err := r.sess.Store().Export(cfg.Export, r.sess.Registry()); err != nil {
			return errors.Join(runErr, err)
		}
		cfg.Logger.Logf(common.SeverityInfo, "exported %d lines to %s", r.sess.LineCount(), cfg.Export)
	}
	return runErr
}

// RunProfile collects PC samples into a histogram and prints the busiest
// addresses when the run ends.
func RunProfile(ctx context.Context, cfg Config) error {
	cfg.defaults()
	r, err := newRunner(cfg)
	if err != nil {
		return err
	}
	dec := cfg.Settings.Decode
	h := profile.NewHistogram(dec.CodeBase, dec.CodeTop, dec.Shift)
	samples := 0

	runErr := r.run(ctx, func() {
		n, _ := r.sess.ProcessProfile(h)
		samples += n
	})
	cfg.Logger.Logf(common.SeverityDebug, "%d PC samples collected", samples)

	hp := printers.NewHistogramPrinter(cfg.OutputWriter, dec.Shift)
	hp.PrintTop(h, cfg.Top)
	hp.PrintStats(r.stats())
	return runErr
}
