package gpu

import (
	"github.com/born-ml/opengine/internal/logging"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/sirupsen/logrus"
)

type options struct {
	memory        MemoryType
	maxWorkGroup  uint32
	queueDepth    int
	parallel      parallel.Config
	buildFailure  func(key string) error
	dispatchFault func(d *Dispatch) error
	log           *logrus.Entry
}

func defaultOptions() options {
	return options{
		memory:       MemoryImage,
		maxWorkGroup: defaultWorkGroupSize,
		queueDepth:   defaultQueueDepth,
		parallel:     parallel.DefaultConfig(),
		log:          logging.Component("gpu"),
	}
}

// Option configures a Runtime.
type Option func(*options)

// WithMemoryType selects the device memory model.
func WithMemoryType(m MemoryType) Option {
	return func(o *options) { o.memory = m }
}

// WithMaxWorkGroupSize caps the local size programs are built for.
func WithMaxWorkGroupSize(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWorkGroup = n
		}
	}
}

// WithQueueDepth sets how many commands may be pending before Enqueue blocks.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}

// WithParallel sets the host parallelism the software runtime executes with.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) { o.parallel = cfg }
}

// WithBuildFailure makes program builds fail when f returns an error.
// Used to exercise device failure paths.
func WithBuildFailure(f func(key string) error) Option {
	return func(o *options) { o.buildFailure = f }
}

// WithDispatchFault runs f before each software dispatch; a returned error
// fails the command.
func WithDispatchFault(f func(d *Dispatch) error) Option {
	return func(o *options) { o.dispatchFault = f }
}

// WithLogger overrides the runtime log entry.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
