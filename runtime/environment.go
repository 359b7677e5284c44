package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/soactor/soactor/config"
	"github.com/soactor/soactor/core"
	"github.com/soactor/soactor/monitor"
)

// Environment composes the pieces of a soactor process: configuration,
// structured logging, the tracing gate, the mailbox registry, the
// optional metrics endpoint and the set of spawned agents.
type Environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	gate     *core.Gate
	registry *core.Registry

	metrics       *monitor.Metrics
	metricsServer *monitor.Server

	mu      sync.RWMutex
	agents  map[core.AgentID]*Agent
	agentID atomic.Uint64

	closed atomic.Bool
}

// NewEnvironment creates a fully wired environment. A nil cfg falls
// back to defaults.
func NewEnvironment(cfg *config.Config) (*Environment, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	env := &Environment{
		cfg:    cfg,
		logger: logger,
		agents: make(map[core.AgentID]*Agent),
	}

	// Traced mailboxes report to the log sink and, when monitoring is
	// on, to the trace-event counters as well.
	sink := core.NewZapSink(logger.Named("tracing"))
	if cfg.Monitor.Enabled {
		env.metrics = monitor.NewMetrics()
		sink = core.MultiSink(sink, env.metrics)
	}

	gate := core.NewGate(sink)
	gate.SetEnabled(cfg.Tracing.Enabled)
	env.gate = gate

	opts := core.RegistryOptions{
		Tracing: gate,
		Logger:  logger.Named("registry"),
	}
	if env.metrics != nil {
		opts.OnCreate = env.metrics.OnCreate
	}

	env.registry = core.NewRegistry(opts)

	if env.metrics != nil {
		env.metrics.SetSource(env.registry)

		promRegistry := prometheus.NewRegistry()
		if err := env.metrics.Register(promRegistry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}

		env.metricsServer = monitor.NewServer(
			cfg.Monitor.Address, cfg.Monitor.MetricsPath,
			promRegistry, logger.Named("monitor"))
		env.metricsServer.Start()
	}

	logger.Info("environment started",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment.String()),
		zap.Bool("tracing", cfg.Tracing.Enabled))

	return env, nil
}

// MailboxRegistry returns the environment's mailbox registry.
func (e *Environment) MailboxRegistry() *core.Registry {
	return e.registry
}

// Tracing returns the environment's tracing gate. Toggling it affects
// only mailboxes created afterward.
func (e *Environment) Tracing() *core.Gate {
	return e.gate
}

// Logger returns the environment's root logger.
func (e *Environment) Logger() *zap.Logger {
	return e.logger
}

// Config returns the environment's configuration.
func (e *Environment) Config() *config.Config {
	return e.cfg
}

// SpawnAgent creates and starts an agent backed by an unlimited chain
// from the registry. The zero options fall back to configured
// defaults.
func (e *Environment) SpawnAgent(handler MessageHandler, opts AgentOptions) (*Agent, error) {
	if handler == nil {
		return nil, fmt.Errorf("agent handler cannot be nil")
	}
	if e.closed.Load() {
		return nil, fmt.Errorf("environment is shut down")
	}

	if opts.QueueSize == 0 {
		opts.QueueSize = e.cfg.Mailbox.AgentQueueSize
	}
	if opts.ProcessTimeout == 0 {
		opts.ProcessTimeout = DefaultAgentOptions().ProcessTimeout
	}

	chain, err := e.registry.NewChain(core.UnlimitedCapacity())
	if err != nil {
		return nil, fmt.Errorf("failed to create agent demand queue: %w", err)
	}

	id := core.AgentID(e.agentID.Inc())
	agent := newAgent(id, handler, chain, opts, e.logger.Named("agent"))

	if err := agent.Start(); err != nil {
		chain.Close()
		return nil, err
	}

	e.mu.Lock()
	e.agents[id] = agent
	e.mu.Unlock()

	e.logger.Debug("agent spawned",
		zap.Uint64("id", uint64(id)),
		zap.String("name", opts.Name))

	return agent, nil
}

// GetAgent retrieves an agent by its ID.
func (e *Environment) GetAgent(id core.AgentID) (*Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	agent, ok := e.agents[id]
	return agent, ok
}

// StopAgent stops an agent and removes it from the environment.
func (e *Environment) StopAgent(id core.AgentID) error {
	e.mu.Lock()
	agent, ok := e.agents[id]
	if ok {
		delete(e.agents, id)
	}
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("agent %d not found", id)
	}
	return agent.Stop()
}

// DefaultChainCapacity builds the configured default chain capacity
// policy.
func (e *Environment) DefaultChainCapacity() core.ChainCapacity {
	chain := e.cfg.Mailbox.Chain
	switch {
	case chain.Unlimited:
		return core.UnlimitedCapacity()
	case chain.Storage == config.StoragePreallocated:
		return core.LimitedPreallocated(chain.MaxSize)
	default:
		return core.LimitedDynamic(chain.MaxSize)
	}
}

// NewChain creates a chain with the configured default capacity.
func (e *Environment) NewChain() (*core.Chain, error) {
	return e.registry.NewChain(e.DefaultChainCapacity())
}

// AgentStats returns statistics for all live agents.
func (e *Environment) AgentStats() []AgentStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := make([]AgentStats, 0, len(e.agents))
	for _, agent := range e.agents {
		stats = append(stats, agent.Stats())
	}
	return stats
}

// Shutdown stops every agent and the metrics endpoint. Individual
// failures are aggregated; shutdown continues past them.
func (e *Environment) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.Lock()
	agents := make([]*Agent, 0, len(e.agents))
	for _, agent := range e.agents {
		agents = append(agents, agent)
	}
	e.agents = make(map[core.AgentID]*Agent)
	e.mu.Unlock()

	var err error
	for _, agent := range agents {
		if stopErr := agent.Stop(); stopErr != nil {
			err = multierr.Append(err, stopErr)
		}
	}

	if e.metricsServer != nil {
		if srvErr := e.metricsServer.Stop(ctx); srvErr != nil {
			err = multierr.Append(err, srvErr)
		}
	}

	e.logger.Info("environment shut down", zap.Error(err))
	e.logger.Sync()

	return err
}

// buildLogger constructs a zap logger from the logging configuration.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(string(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	zapCfg.DisableCaller = !cfg.Caller
	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	if zapCfg.Encoding == "console" {
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	return zapCfg.Build()
}
