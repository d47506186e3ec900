package fastmks

import (
	"log/slog"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/fastmks/codec"
	"github.com/hupe1980/fastmks/covertree"
	"github.com/hupe1980/fastmks/resource"
)

// Mode selects the traversal strategy. All modes return identical results;
// they differ only in how much of the kernel matrix they avoid evaluating.
type Mode int

const (
	// ModeDual traverses a query tree and the reference tree
	// simultaneously. Default.
	ModeDual Mode = iota
	// ModeSingle traverses the reference tree once per query.
	ModeSingle
	// ModeNaive evaluates every (query, reference) pair. No tree is built.
	ModeNaive
)

func (m Mode) String() string {
	switch m {
	case ModeDual:
		return "dual"
	case ModeSingle:
		return "single"
	case ModeNaive:
		return "naive"
	default:
		return "unknown"
	}
}

type options struct {
	mode             Mode
	base             float64
	strictK          bool
	excludeSelf      bool
	tolerance        Tolerance
	workers          int
	filter           *roaring.Bitmap
	codec            codec.Codec
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures FastMKS constructor/load behavior.
type Option func(*options)

// WithMode selects the traversal strategy. ModeNaive skips reference tree
// construction entirely.
func WithMode(mode Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithBase configures the cover tree expansion base. Must be greater
// than 1; the default is covertree.DefaultBase. Smaller bases give deeper,
// tighter trees at a higher construction cost.
func WithBase(base float64) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithStrictK makes Search fail with ErrKTooLarge when k exceeds the
// number of available reference points, instead of truncating k.
func WithStrictK() Option {
	return func(o *options) {
		o.strictK = true
	}
}

// WithExcludeSelf drops exact index self-matches when the query set is the
// reference set. It has no effect on SearchFor with a separate query set.
func WithExcludeSelf() Option {
	return func(o *options) {
		o.excludeSelf = true
	}
}

// WithTolerance configures the numeric tolerance policy attached to
// Results. It affects result comparison only, never search behavior.
func WithTolerance(tol Tolerance) Option {
	return func(o *options) {
		o.tolerance = tol
	}
}

// WithWorkers bounds the number of concurrent query workers.
// Values below 1 fall back to GOMAXPROCS.
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithFilter restricts results to the reference indices present in the
// bitmap. Pruning bounds stay sound under filtering, so all modes return
// identical filtered results. The bitmap must not be mutated while
// searches run.
func WithFilter(filter *roaring.Bitmap) Option {
	return func(o *options) {
		o.filter = filter
	}
}

// WithCodec configures the compression codec used by SaveModel.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithResourceController attaches a resource controller. Searches acquire
// an admission slot before running, and model IO is rate limited.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		mode:             ModeDual,
		base:             covertree.DefaultBase,
		tolerance:        DefaultTolerance,
		workers:          runtime.GOMAXPROCS(0),
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}
