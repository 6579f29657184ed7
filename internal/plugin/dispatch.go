package plugin

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ayusman/paperdrum/internal/hittest"
	"github.com/ayusman/paperdrum/internal/log"
)

// Binding is the action configured for a pad.
type Binding struct {
	Plugin string
	Action string
	Config json.RawMessage
}

// Bindings resolves the binding for a pad. ok is false when the pad has
// no enabled binding.
type Bindings interface {
	BindingForPad(pad string) (b Binding, ok bool, err error)
}

// Dispatcher runs bound plugin actions for strikes off the frame loop.
// Submit never blocks; when the queue is full the strike is dropped.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	bindings Bindings
	queue    chan hittest.Strike
	dropped  atomic.Int64
	handled  atomic.Int64
}

// NewDispatcher creates a dispatcher with a queue of the given size.
func NewDispatcher(manager *Manager, executor *Executor, bindings Bindings, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		bindings: bindings,
		queue:    make(chan hittest.Strike, buffer),
	}
}

// Submit queues a strike. It returns false if the strike was dropped.
func (d *Dispatcher) Submit(s hittest.Strike) bool {
	select {
	case d.queue <- s:
		return true
	default:
		d.dropped.Add(1)
		log.Warn("plugin queue full, dropping strike", "pad", s.Pad)
		return false
	}
}

// Run executes queued strikes one at a time until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-d.queue:
			d.handle(ctx, s)
			d.handled.Add(1)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, s hittest.Strike) {
	b, ok, err := d.bindings.BindingForPad(s.Pad)
	if err != nil {
		log.Error("lookup pad binding", "pad", s.Pad, "error", err)
		return
	}
	if !ok {
		return
	}

	p, err := d.manager.Get(b.Plugin)
	if err != nil {
		log.Warn("bound plugin unavailable", "pad", s.Pad, "plugin", b.Plugin, "error", err)
		return
	}

	resp, err := d.executor.Execute(ctx, p, &Request{
		Action:    b.Action,
		Pad:       s.Pad,
		Intensity: s.Intensity,
		Velocity:  s.Velocity,
		Config:    b.Config,
	})
	if err != nil {
		log.Error("plugin action failed", "pad", s.Pad, "plugin", b.Plugin, "action", b.Action, "error", err)
		return
	}
	if !resp.Success {
		log.Warn("plugin action unsuccessful", "pad", s.Pad, "plugin", b.Plugin, "error", resp.Error)
		return
	}
	log.Debug("plugin action done", "pad", s.Pad, "plugin", b.Plugin, "action", b.Action)
}

// Dropped returns how many strikes were dropped on a full queue.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Handled returns how many strikes the worker has processed.
func (d *Dispatcher) Handled() int64 {
	return d.handled.Load()
}
