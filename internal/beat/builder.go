package beat

import (
	"context"
	"log/slog"
	"time"

	"github.com/nebula-tasks/beat/internal/broker"
	"github.com/nebula-tasks/beat/internal/scheduler"
)

// Builder assembles a Beat from a Config and a dialed Broker. Every setter
// returns the Builder so calls chain; Build performs the actual network
// dial and is the only fallible step.
type Builder struct {
	cfg              Config
	schedulerBackend scheduler.Backend
	heartbeat        *uint16
	logger           *slog.Logger
}

// NewBuilder starts a Builder for brokerURL with every other option at its
// documented default. The scheduler backend defaults to LocalBackend, a
// no-op, until WithCustomSchedulerBackend overrides it.
func NewBuilder(brokerURL string) *Builder {
	cfg := DefaultConfig()
	cfg.BrokerURL = brokerURL
	return &Builder{
		cfg:              cfg,
		schedulerBackend: scheduler.LocalBackend{},
		logger:           slog.Default(),
	}
}

// NewBuilderFromConfig starts a Builder from an already-loaded Config, e.g.
// one produced by LoadConfigFile.
func NewBuilderFromConfig(cfg Config) *Builder {
	return &Builder{
		cfg:              cfg,
		schedulerBackend: scheduler.LocalBackend{},
		logger:           slog.Default(),
	}
}

// Logger overrides the default slog.Default() logger.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Name sets the Beat instance's name, used only for logging/metrics
// labeling.
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// DefaultQueue sets the queue a task is routed to when no TaskRoute matches.
func (b *Builder) DefaultQueue(queue string) *Builder {
	b.cfg.DefaultQueue = queue
	return b
}

// TaskRoute appends a (pattern, queue) routing rule; rules are tried in the
// order added, first match wins.
func (b *Builder) TaskRoute(pattern, queue string) *Builder {
	b.cfg.TaskRoutes = append(b.cfg.TaskRoutes, RouteConfig{Pattern: pattern, Queue: queue})
	return b
}

// Heartbeat sets the AMQP connection heartbeat interval; ignored by brokers
// without a heartbeat concept.
func (b *Builder) Heartbeat(seconds uint16) *Builder {
	b.heartbeat = &seconds
	return b
}

// BrokerConnectionTimeout bounds a single connect or reconnect attempt.
func (b *Builder) BrokerConnectionTimeout(d time.Duration) *Builder {
	b.cfg.BrokerConnectionTimeout = d
	return b
}

// BrokerConnectionRetry toggles whether Start enters the reconnect
// subroutine on a broker connection error, versus propagating it directly.
func (b *Builder) BrokerConnectionRetry(enabled bool) *Builder {
	b.cfg.BrokerConnectionRetry = enabled
	return b
}

// BrokerConnectionMaxRetries caps reconnect attempts per connection loss.
func (b *Builder) BrokerConnectionMaxRetries(n int) *Builder {
	b.cfg.BrokerConnectionMaxRetries = n
	return b
}

// BrokerConnectionRetryDelay sets the pause between reconnect attempts.
func (b *Builder) BrokerConnectionRetryDelay(d time.Duration) *Builder {
	b.cfg.BrokerConnectionRetryDelay = d
	return b
}

// TaskContentType sets the default body content type advertised on publish.
func (b *Builder) TaskContentType(ct broker.ContentType) *Builder {
	b.cfg.TaskContentType = string(ct)
	return b
}

// MaxSleepDuration caps how long beatLoop sleeps between ticks, regardless
// of how far away the next scheduled entry is. Zero means no cap.
func (b *Builder) MaxSleepDuration(d time.Duration) *Builder {
	b.cfg.MaxSleepDurationSeconds = int64(d / time.Second)
	return b
}

// WithDefaultSchedulerBackend restores the no-op LocalBackend, undoing a
// prior WithCustomSchedulerBackend call.
func (b *Builder) WithDefaultSchedulerBackend() *Builder {
	b.schedulerBackend = scheduler.LocalBackend{}
	return b
}

// WithCustomSchedulerBackend installs sb (e.g. schedulerpg.Backend) as the
// source of truth Beat reconciles against: ShouldSync is asked every tick,
// and Sync runs whenever it reports true.
func (b *Builder) WithCustomSchedulerBackend(sb scheduler.Backend) *Builder {
	b.schedulerBackend = sb
	return b
}

// Build dials the broker named by cfg.BrokerURL, retrying per the
// configured connection policy, and returns a Beat ready for Start.
func (b *Builder) Build(ctx context.Context) (*Beat, error) {
	brBuilder, err := broker.NewBuilder(b.cfg.BrokerURL, b.logger)
	if err != nil {
		return nil, &Error{Op: "build", Err: err}
	}

	brBuilder = brBuilder.
		DeclareQueue(b.cfg.DefaultQueue).
		Heartbeat(b.heartbeat).
		ContentType(broker.ContentType(b.cfg.TaskContentType))

	br, err := brBuilder.BuildAndConnect(ctx, b.cfg.BrokerConnectionTimeout, b.cfg.BrokerConnectionMaxRetries, b.cfg.BrokerConnectionRetryDelay)
	if err != nil {
		return nil, &Error{Op: "build", Err: err}
	}

	sched := scheduler.New(br, scheduler.DefaultTickInterval, b.logger)

	return &Beat{
		cfg:              b.cfg,
		scheduler:        sched,
		schedulerBackend: b.schedulerBackend,
		broker:           br,
		logger:           b.logger,
	}, nil
}
