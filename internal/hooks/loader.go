package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"aide/internal/llm"
	"aide/internal/logging"
)

// hookFile is the shape of one YAML hook definition file.
type hookFile struct {
	Hooks []Definition `yaml:"hooks"`
}

// Loader reads hook definitions from YAML files in watched directories and
// keeps the dispatcher in sync when they change.
type Loader struct {
	dispatcher *Dispatcher
	client     llm.Client
	agentRun   AgentRunnerFunc
	dirs       []string

	mu      sync.Mutex
	loaded  map[string]bool
	watcher *fsnotify.Watcher
}

// NewLoader creates a loader. client backs prompt hooks; agentRun backs
// agent hooks (nil disables that type).
func NewLoader(dispatcher *Dispatcher, client llm.Client, agentRun AgentRunnerFunc, dirs []string) *Loader {
	return &Loader{
		dispatcher: dispatcher,
		client:     client,
		agentRun:   agentRun,
		dirs:       dirs,
		loaded:     make(map[string]bool),
	}
}

// Load parses every hook file in the watched directories and registers the
// results, replacing any previously file-loaded hooks.
func (l *Loader) Load() error {
	var hooks []*Hook
	names := make(map[string]bool)

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read hook directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
				continue
			}
			fileHooks, err := l.loadFile(filepath.Join(dir, name))
			if err != nil {
				logging.Hooks("Skipping hook file %s: %v", name, err)
				continue
			}
			for _, h := range fileHooks {
				hooks = append(hooks, h)
				names[h.Name] = true
			}
		}
	}

	l.mu.Lock()
	previous := l.loaded
	l.loaded = names
	l.mu.Unlock()

	// Evict both the previous round's hooks and this round's names, but
	// remember only the fresh names so a file that disappears does not keep
	// shadowing later registrations under the same name.
	evict := make(map[string]bool, len(previous)+len(names))
	for name := range previous {
		evict[name] = true
	}
	for name := range names {
		evict[name] = true
	}
	l.dispatcher.ReplaceLoaded(evict, hooks)
	return nil
}

// loadFile parses one YAML file into runnable hooks.
func (l *Loader) loadFile(path string) ([]*Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file hookFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	hooks := make([]*Hook, 0, len(file.Hooks))
	for i := range file.Hooks {
		def := file.Hooks[i]
		if def.Name == "" {
			logging.HooksDebug("Hook %d in %s has no name, skipping", i, path)
			continue
		}
		for _, event := range def.Events {
			if !ValidEvent(event) {
				return nil, fmt.Errorf("hook %s: unknown event %q", def.Name, event)
			}
		}

		run, err := l.buildFunc(&def)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", def.Name, err)
		}
		hooks = append(hooks, &Hook{Definition: def, Run: run})
	}
	return hooks, nil
}

func (l *Loader) buildFunc(def *Definition) (Func, error) {
	switch def.Type {
	case "command":
		return CommandFunc(def.Config)
	case "prompt":
		if l.client == nil {
			return nil, fmt.Errorf("prompt hooks need a model client")
		}
		return PromptFunc(def.Config, l.client)
	case "agent":
		if l.agentRun == nil {
			return nil, fmt.Errorf("agent hooks are not available")
		}
		return AgentFunc(def.Config, l.agentRun)
	default:
		return nil, fmt.Errorf("unknown hook type %q", def.Type)
	}
}

// Watch reloads definitions whenever a watched directory changes. Blocks
// until ctx is cancelled; callers run it on its own goroutine.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create hook watcher: %w", err)
	}
	defer watcher.Close()

	l.mu.Lock()
	l.watcher = watcher
	l.mu.Unlock()

	watching := 0
	for _, dir := range l.dirs {
		if err := watcher.Add(dir); err != nil {
			logging.HooksDebug("Not watching %s: %v", dir, err)
			continue
		}
		watching++
	}
	if watching == 0 {
		<-ctx.Done()
		return nil
	}
	logging.Hooks("Watching %d hook directories for changes", watching)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.HooksDebug("Hook file change: %s", event)
			if err := l.Load(); err != nil {
				logging.Hooks("Hook reload failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.HooksDebug("Hook watcher error: %v", err)
		}
	}
}
