// Package runtime assembles the Veyra runtime: managed heap, signal graph
// and actor system behind one context object with an ordered lifecycle.
package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Service is a subsystem managed by the lifecycle manager.
type Service interface {
	// Start brings the subsystem up. The context bounds the attempt.
	Start(ctx context.Context) error

	// Stop tears the subsystem down. The context bounds the attempt.
	Stop(ctx context.Context) error
}

// ServiceFunc adapts start/stop functions into a Service. A nil function is
// treated as an immediate success.
type ServiceFunc struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (s ServiceFunc) Start(ctx context.Context) error {
	if s.StartFunc == nil {
		return nil
	}
	return s.StartFunc(ctx)
}

func (s ServiceFunc) Stop(ctx context.Context) error {
	if s.StopFunc == nil {
		return nil
	}
	return s.StopFunc(ctx)
}

// LifecycleEvent describes a lifecycle transition.
type LifecycleEvent struct {
	Type      string
	Service   string
	Timestamp time.Time
	Error     error
}

// LifecycleManager starts registered services in dependency order and stops
// them in reverse start order.
type LifecycleManager struct {
	// services holds all registered services
	services map[string]Service

	// dependencies tracks service dependencies
	dependencies map[string][]string

	// startOrder tracks the order services were started
	startOrder []string

	// mutex protects concurrent access
	mutex sync.RWMutex

	// started indicates if the lifecycle manager has been started
	started bool

	// eventChan for broadcasting lifecycle events
	eventChan chan LifecycleEvent

	// listeners for lifecycle events
	listeners []func(LifecycleEvent)

	// timeout for service operations
	timeout time.Duration
}

// NewLifecycleManager creates a new lifecycle manager
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		eventChan:    make(chan LifecycleEvent, 100),
		timeout:      30 * time.Second,
	}
}

// Register registers a service with the lifecycle manager
func (lm *LifecycleManager) Register(name string, service Service, deps ...string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if service == nil {
		return fmt.Errorf("service cannot be nil")
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return fmt.Errorf("cannot register service %s: lifecycle manager already started", name)
	}
	if _, exists := lm.services[name]; exists {
		return fmt.Errorf("service %s is already registered", name)
	}

	lm.services[name] = service
	lm.dependencies[name] = deps

	lm.broadcastEvent(LifecycleEvent{
		Type:      "service.registered",
		Service:   name,
		Timestamp: time.Now(),
	})

	return nil
}

// Start starts all services in dependency order
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return fmt.Errorf("lifecycle manager already started")
	}

	startOrder, err := lm.calculateStartOrder()
	if err != nil {
		return fmt.Errorf("failed to calculate start order: %w", err)
	}

	for _, serviceName := range startOrder {
		service := lm.services[serviceName]

		lm.broadcastEvent(LifecycleEvent{
			Type:      "service.starting",
			Service:   serviceName,
			Timestamp: time.Now(),
		})

		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Start(startCtx)
		cancel()

		if err != nil {
			lm.broadcastEvent(LifecycleEvent{
				Type:      "service.start_failed",
				Service:   serviceName,
				Timestamp: time.Now(),
				Error:     err,
			})
			return fmt.Errorf("failed to start service %s: %w", serviceName, err)
		}

		lm.startOrder = append(lm.startOrder, serviceName)

		lm.broadcastEvent(LifecycleEvent{
			Type:      "service.started",
			Service:   serviceName,
			Timestamp: time.Now(),
		})
	}

	lm.started = true
	return nil
}

// Stop stops all services in reverse start order
func (lm *LifecycleManager) Stop(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if !lm.started {
		return nil
	}

	stopOrder := make([]string, len(lm.startOrder))
	copy(stopOrder, lm.startOrder)
	for i, j := 0, len(stopOrder)-1; i < j; i, j = i+1, j-1 {
		stopOrder[i], stopOrder[j] = stopOrder[j], stopOrder[i]
	}

	var lastError error

	for _, serviceName := range stopOrder {
		service := lm.services[serviceName]

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Stop(stopCtx)
		cancel()

		if err != nil {
			lastError = err
			lm.broadcastEvent(LifecycleEvent{
				Type:      "service.stop_failed",
				Service:   serviceName,
				Timestamp: time.Now(),
				Error:     err,
			})
		} else {
			lm.broadcastEvent(LifecycleEvent{
				Type:      "service.stopped",
				Service:   serviceName,
				Timestamp: time.Now(),
			})
		}
	}

	lm.started = false
	lm.startOrder = nil
	return lastError
}

// Services returns all registered service names
func (lm *LifecycleManager) Services() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	names := make([]string, 0, len(lm.services))
	for name := range lm.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartOrder returns the order services were started in.
func (lm *LifecycleManager) StartOrder() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	order := make([]string, len(lm.startOrder))
	copy(order, lm.startOrder)
	return order
}

// Events returns a channel for lifecycle events
func (lm *LifecycleManager) Events() <-chan LifecycleEvent {
	return lm.eventChan
}

// AddListener adds a lifecycle event listener
func (lm *LifecycleManager) AddListener(listener func(LifecycleEvent)) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.listeners = append(lm.listeners, listener)
}

// IsStarted returns true if the lifecycle manager has been started
func (lm *LifecycleManager) IsStarted() bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()
	return lm.started
}

// SetTimeout sets the timeout for service operations
func (lm *LifecycleManager) SetTimeout(timeout time.Duration) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.timeout = timeout
}

// calculateStartOrder topologically sorts services by declared dependencies
// using Kahn's algorithm.
func (lm *LifecycleManager) calculateStartOrder() ([]string, error) {
	inDegree := make(map[string]int)
	graph := make(map[string][]string)

	for service := range lm.services {
		inDegree[service] = 0
		graph[service] = []string{}
	}

	for service, deps := range lm.dependencies {
		for _, dep := range deps {
			if _, exists := lm.services[dep]; !exists {
				return nil, fmt.Errorf("dependency %s of service %s is not registered", dep, service)
			}
			graph[dep] = append(graph[dep], service)
			inDegree[service]++
		}
	}

	queue := []string{}
	for service, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, service)
		}
	}
	// Deterministic order among independent services.
	sort.Strings(queue)

	result := []string{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		ready := []string{}
		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(lm.services) {
		return nil, fmt.Errorf("circular dependency detected")
	}

	return result, nil
}

// broadcastEvent broadcasts a lifecycle event to all listeners
func (lm *LifecycleManager) broadcastEvent(event LifecycleEvent) {
	// Non-blocking send; a full channel drops the event.
	select {
	case lm.eventChan <- event:
	default:
	}

	for _, listener := range lm.listeners {
		go func(l func(LifecycleEvent)) {
			defer func() {
				if r := recover(); r != nil {
					// Ignore panics in listeners
				}
			}()
			l(event)
		}(listener)
	}
}
