package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veyra-lang/runtime/actor"
	"github.com/veyra-lang/runtime/config"
)

func TestNewRuntimeDefaults(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if r.Heap() == nil || r.Signals() == nil || r.Actors() == nil {
		t.Fatal("Expected all subsystems to be constructed")
	}
	if r.IsStarted() {
		t.Error("Runtime should not be started before Start")
	}
	if Version() == "" {
		t.Error("Expected a non-empty version string")
	}
}

func TestNewRuntimeRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Actor.MaxActors = -1

	if _, err := New(cfg); !errors.Is(err, config.ErrInvalidMaxActors) {
		t.Errorf("Expected ErrInvalidMaxActors, got %v", err)
	}
}

func TestRuntimeStartStop(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Failed to start runtime: %v", err)
	}
	if !r.IsStarted() {
		t.Error("Runtime should report started")
	}
	if !r.Actors().IsRunning() {
		t.Error("Actor system should be running after Start")
	}

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Failed to stop runtime: %v", err)
	}
	if r.IsStarted() {
		t.Error("Runtime should not report started after Stop")
	}
	if r.Actors().IsRunning() {
		t.Error("Actor system should be stopped after Stop")
	}
}

func TestSubsystemStartOrder(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Failed to start runtime: %v", err)
	}
	defer r.Stop(ctx)

	// Stop runs in reverse, so this order guarantees actors stop while the
	// signal graph and heap are still alive.
	want := []string{"heap", "signals", "actors"}
	order := r.Lifecycle().StartOrder()
	if len(order) != len(want) {
		t.Fatalf("Expected start order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected start order %v, got %v", want, order)
		}
	}
}

func TestRuntimeEndToEnd(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Failed to start runtime: %v", err)
	}
	defer r.Stop(ctx)

	// Heap allocation.
	p, err := r.Heap().Alloc(64, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	if !r.Heap().IsHeapPtr(p) {
		t.Error("Expected a valid heap pointer")
	}

	// Signal propagation.
	src, err := r.Signals().Create(2)
	if err != nil {
		t.Fatalf("Failed to create signal: %v", err)
	}
	doubled, err := r.Signals().CreateComputed(func() any {
		return src.Get().(int) * 2
	})
	if err != nil {
		t.Fatalf("Failed to create computed signal: %v", err)
	}
	src.AddDependent(doubled)
	if err := src.Set(21); err != nil {
		t.Fatalf("Failed to set signal: %v", err)
	}
	if got := doubled.Get(); got != 42 {
		t.Errorf("Expected computed value 42, got %v", got)
	}

	// Actor round trip.
	var mu sync.Mutex
	var received []any
	a, err := r.Actors().Create(actor.BehaviorFunc(func(_ *actor.Actor, msg *actor.Message) {
		mu.Lock()
		received = append(received, msg.Payload)
		mu.Unlock()
	}), nil)
	if err != nil {
		t.Fatalf("Failed to create actor: %v", err)
	}
	if !r.Actors().Send(a, &actor.Message{Payload: "ping"}) {
		t.Fatal("Failed to send message")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Message was not processed before deadline")
}

func TestApplyConfigUpdatesLiveSettings(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	newCfg := config.DefaultConfig()
	newCfg.Heap.GCTriggerRatio = 0.5
	newCfg.Actor.PollInterval = 5 * time.Millisecond

	// Must not panic and must accept the callback shape of the watcher.
	var cb config.ConfigChangeCallback = r.ApplyConfig
	cb(r.Config(), newCfg)
}

func TestLifecycleManagerDependencyOrder(t *testing.T) {
	lm := NewLifecycleManager()

	var mu sync.Mutex
	var started []string
	record := func(name string) Service {
		return ServiceFunc{
			StartFunc: func(context.Context) error {
				mu.Lock()
				started = append(started, name)
				mu.Unlock()
				return nil
			},
		}
	}

	lm.Register("c", record("c"), "b")
	lm.Register("b", record("b"), "a")
	lm.Register("a", record("a"))

	if err := lm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	defer lm.Stop(context.Background())

	want := []string{"a", "b", "c"}
	for i, name := range want {
		if started[i] != name {
			t.Fatalf("Expected start order %v, got %v", want, started)
		}
	}
}

func TestLifecycleManagerDetectsCycle(t *testing.T) {
	lm := NewLifecycleManager()
	noop := ServiceFunc{}

	lm.Register("a", noop, "b")
	lm.Register("b", noop, "a")

	if err := lm.Start(context.Background()); err == nil {
		t.Error("Expected an error for circular dependencies")
	}
}

func TestLifecycleManagerRejectsUnknownDependency(t *testing.T) {
	lm := NewLifecycleManager()
	lm.Register("a", ServiceFunc{}, "ghost")

	if err := lm.Start(context.Background()); err == nil {
		t.Error("Expected an error for an unregistered dependency")
	}
}

func TestLifecycleStopReversesOrder(t *testing.T) {
	lm := NewLifecycleManager()

	var mu sync.Mutex
	var stopped []string
	record := func(name string) Service {
		return ServiceFunc{
			StopFunc: func(context.Context) error {
				mu.Lock()
				stopped = append(stopped, name)
				mu.Unlock()
				return nil
			},
		}
	}

	lm.Register("a", record("a"))
	lm.Register("b", record("b"), "a")

	if err := lm.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if err := lm.Stop(context.Background()); err != nil {
		t.Fatalf("Failed to stop: %v", err)
	}

	if len(stopped) != 2 || stopped[0] != "b" || stopped[1] != "a" {
		t.Errorf("Expected stop order [b a], got %v", stopped)
	}
}
