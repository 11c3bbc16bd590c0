package hooks

import (
	"context"
	"sort"
	"sync"
	"time"

	"aide/internal/logging"
)

// Dispatcher holds registered hooks and fans events out to them.
type Dispatcher struct {
	mu sync.RWMutex

	// byEvent maps each event to its hooks. Hooks registered with no
	// events land in global and run on every event.
	byEvent map[Event][]*Hook
	global  []*Hook

	maxWorkers     int
	defaultTimeout time.Duration
}

// NewDispatcher creates a dispatcher backed by the global executor.
func NewDispatcher(maxWorkers int, defaultTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		byEvent:        make(map[Event][]*Hook),
		maxWorkers:     maxWorkers,
		defaultTimeout: defaultTimeout,
	}
}

// Register adds a hook. Hooks with no events fire on every event.
func (d *Dispatcher) Register(hook *Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(hook.Events) == 0 {
		d.global = append(d.global, hook)
		logging.HooksDebug("Registered global hook %s", hook.Name)
		return
	}
	for _, event := range hook.Events {
		d.byEvent[event] = append(d.byEvent[event], hook)
	}
	logging.HooksDebug("Registered hook %s for %v", hook.Name, hook.Events)
}

// ReplaceLoaded swaps every hook whose name is in the loaded set. Used by
// the file loader on reload; programmatically registered hooks survive.
func (d *Dispatcher) ReplaceLoaded(loadedNames map[string]bool, hooks []*Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keep := func(list []*Hook) []*Hook {
		out := list[:0]
		for _, h := range list {
			if !loadedNames[h.Name] {
				out = append(out, h)
			}
		}
		return out
	}
	for event, list := range d.byEvent {
		d.byEvent[event] = keep(list)
	}
	d.global = keep(d.global)

	for _, hook := range hooks {
		if len(hook.Events) == 0 {
			d.global = append(d.global, hook)
			continue
		}
		for _, event := range hook.Events {
			d.byEvent[event] = append(d.byEvent[event], hook)
		}
	}
	logging.Hooks("Reloaded %d file-defined hooks", len(hooks))
}

// gather returns the enabled hooks for an event, sorted by descending
// priority. Ties keep registration order.
func (d *Dispatcher) gather(event Event) []*Hook {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hooks := make([]*Hook, 0, len(d.byEvent[event])+len(d.global))
	for _, h := range d.byEvent[event] {
		if h.IsEnabled() {
			hooks = append(hooks, h)
		}
	}
	for _, h := range d.global {
		if h.IsEnabled() {
			hooks = append(hooks, h)
		}
	}
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Priority > hooks[j].Priority })
	return hooks
}

// Execute runs every hook registered for the event. Non-matching hooks get
// a skipped result; matching hooks run in parallel on the worker pool.
// Results come back in priority order regardless of completion order.
func (d *Dispatcher) Execute(ctx context.Context, event Event, payload map[string]any) []Result {
	hooks := d.gather(event)
	if len(hooks) == 0 {
		return nil
	}

	if payload == nil {
		payload = make(map[string]any)
	}
	payload["event"] = string(event)

	logging.HooksDebug("Dispatching %s to %d hooks", event, len(hooks))
	executor := Global(d.maxWorkers, d.defaultTimeout)

	pending := make([]<-chan Result, len(hooks))
	results := make([]Result, len(hooks))
	for i, hook := range hooks {
		if !matchesAll(hook.Matchers, payload) {
			results[i] = Result{HookName: hook.Name, Success: true, Message: SkippedMessage}
			continue
		}
		pending[i] = executor.Submit(ctx, hook, payload)
	}

	for i, ch := range pending {
		if ch == nil {
			continue
		}
		results[i] = <-ch
	}
	return results
}
