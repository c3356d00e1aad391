package runtime

import (
	"context"
	"fmt"
	"log"

	"github.com/veyra-lang/runtime/actor"
	"github.com/veyra-lang/runtime/config"
	"github.com/veyra-lang/runtime/heap"
	"github.com/veyra-lang/runtime/signal"
)

// version is the runtime release string.
const version = "1.0.0"

// Version returns the runtime release string.
func Version() string {
	return version
}

// Runtime bundles the managed heap, the signal graph and the actor system
// behind one context object. Multiple independent runtimes may coexist in a
// process; they share nothing.
type Runtime struct {
	cfg *config.Config

	heap    *heap.Heap
	signals *signal.Registry
	actors  *actor.System

	lifecycle *LifecycleManager
}

// New creates a runtime from the given configuration. A nil configuration
// uses the defaults. The heap is reserved immediately; the actor scheduler
// does not run until Start.
func New(cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: invalid configuration: %w", err)
	}

	h, err := heap.New(heap.Config{
		SizeBytes:    cfg.Heap.SizeBytes,
		RootCapacity: cfg.Heap.RootCapacity,
		TriggerRatio: cfg.Heap.GCTriggerRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("runtime: failed to create heap: %w", err)
	}

	r := &Runtime{
		cfg:     cfg,
		heap:    h,
		signals: signal.NewRegistry(h, cfg.Signal.RegistryCapacity),
		actors: actor.NewSystem(actor.Config{
			MaxActors:     cfg.Actor.MaxActors,
			MailboxSize:   cfg.Actor.MailboxSize,
			WorkerCount:   cfg.Actor.WorkerCount,
			SchedulerMode: actor.SchedulerMode(cfg.Actor.SchedulerMode),
			PollInterval:  cfg.Actor.PollInterval,
		}),
		lifecycle: NewLifecycleManager(),
	}

	// Subsystem start order: heap, then signals, then actors. Shutdown is
	// the exact reverse.
	r.lifecycle.Register("heap", ServiceFunc{
		StopFunc: func(context.Context) error {
			r.heap.Close()
			return nil
		},
	})
	r.lifecycle.Register("signals", ServiceFunc{
		StopFunc: func(context.Context) error {
			r.signals.Close()
			return nil
		},
	}, "heap")
	r.lifecycle.Register("actors", ServiceFunc{
		StartFunc: func(context.Context) error {
			return r.actors.Start()
		},
		StopFunc: func(ctx context.Context) error {
			return r.actors.Shutdown(ctx)
		},
	}, "heap", "signals")

	return r, nil
}

// Start brings the subsystems up in dependency order.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.lifecycle.Start(ctx); err != nil {
		return err
	}
	log.Printf("Runtime %s (v%s) started", r.cfg.Runtime.Name, version)
	return nil
}

// Stop tears the subsystems down in reverse start order. Every managed
// pointer, signal and actor handle is invalid afterwards.
func (r *Runtime) Stop(ctx context.Context) error {
	err := r.lifecycle.Stop(ctx)
	log.Printf("Runtime %s stopped", r.cfg.Runtime.Name)
	return err
}

// IsStarted reports whether Start has completed and Stop has not.
func (r *Runtime) IsStarted() bool {
	return r.lifecycle.IsStarted()
}

// Heap returns the managed heap.
func (r *Runtime) Heap() *heap.Heap {
	return r.heap
}

// Signals returns the signal registry.
func (r *Runtime) Signals() *signal.Registry {
	return r.signals
}

// Actors returns the actor system.
func (r *Runtime) Actors() *actor.System {
	return r.actors
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// Lifecycle returns the lifecycle manager, exposed for event listeners.
func (r *Runtime) Lifecycle() *LifecycleManager {
	return r.lifecycle
}

// ApplyConfig applies the settings that can change while the runtime is
// live: the GC trigger ratio and the scheduler poll interval. It matches
// config.ConfigChangeCallback so it can be wired to a config watcher.
func (r *Runtime) ApplyConfig(oldConfig, newConfig *config.Config) {
	if newConfig == nil {
		return
	}
	if oldConfig == nil || oldConfig.Heap.GCTriggerRatio != newConfig.Heap.GCTriggerRatio {
		r.heap.SetTriggerRatio(newConfig.Heap.GCTriggerRatio)
		log.Printf("Runtime %s: gc trigger ratio set to %.2f",
			r.cfg.Runtime.Name, newConfig.Heap.GCTriggerRatio)
	}
	if oldConfig == nil || oldConfig.Actor.PollInterval != newConfig.Actor.PollInterval {
		r.actors.SetPollInterval(newConfig.Actor.PollInterval)
		log.Printf("Runtime %s: scheduler poll interval set to %v",
			r.cfg.Runtime.Name, newConfig.Actor.PollInterval)
	}
}
