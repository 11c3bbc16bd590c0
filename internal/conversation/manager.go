package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aide/internal/logging"
)

// NewSessionName generates a dated name for a fresh conversation.
func NewSessionName() string {
	return time.Now().Format("session-2006-01-02-150405")
}

// Manager owns conversation persistence. One JSON document per conversation
// under the history directory, plus a last-session pointer naming the most
// recently written conversation. Writes are serialized per conversation name
// and are atomic at the single-file level (write-then-rename).
type Manager struct {
	dir string

	mu     sync.Mutex
	loaded map[string]*History
	locks  map[string]*sync.Mutex
}

const lastSessionFile = "last-session"

// NewManager creates a history manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:    dir,
		loaded: make(map[string]*History),
		locks:  make(map[string]*sync.Mutex),
	}
}

// nameLock returns the per-conversation write lock.
func (m *Manager) nameLock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, sanitizeName(name)+".json")
}

func sanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	return r.Replace(name)
}

// Load reads the conversation with the given name. A missing file yields an
// empty history. Legacy formats are coerced; unknown shapes produce an empty
// history with a warning.
func (m *Manager) Load(name string) (*History, error) {
	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	if h, ok := m.loaded[name]; ok {
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			logging.SessionDebug("No history file for %q, starting empty", name)
			h := NewHistory()
			m.remember(name, h)
			return h, nil
		}
		return nil, fmt.Errorf("failed to read history %q: %w", name, err)
	}

	h := coerceHistory(name, data)
	m.remember(name, h)
	logging.Session("Loaded conversation %q: %d messages", name, len(h.Messages))
	return h, nil
}

// coerceHistory parses the on-disk document, accepting legacy formats.
func coerceHistory(name string, data []byte) *History {
	trimmed := strings.TrimSpace(string(data))

	// Legacy format: a bare message list.
	if strings.HasPrefix(trimmed, "[") {
		var msgs []Message
		if err := json.Unmarshal(data, &msgs); err == nil {
			return &History{Messages: msgs}
		}
		logging.Get(logging.CategorySession).Warn("History %q is a malformed list, starting empty", name)
		return NewHistory()
	}

	// Current format.
	var h History
	if err := json.Unmarshal(data, &h); err == nil && h.Messages != nil {
		return &h
	}

	// Legacy format: {context, history} mapping.
	var legacy struct {
		Context string    `json:"context"`
		History []Message `json:"history"`
	}
	if err := json.Unmarshal(data, &legacy); err == nil && legacy.History != nil {
		return &History{
			Messages:                legacy.History,
			PastConversationSummary: legacy.Context,
		}
	}

	logging.Get(logging.CategorySession).Warn("History %q has an unknown shape, starting empty", name)
	return NewHistory()
}

// Update replaces the in-memory history for a conversation.
func (m *Manager) Update(name string, h *History) {
	m.remember(name, h)
}

func (m *Manager) remember(name string, h *History) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded[name] = h
}

// Save writes the conversation to disk and moves the last-session pointer.
func (m *Manager) Save(name string) error {
	m.mu.Lock()
	h, ok := m.loaded[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("conversation %q not loaded", name)
	}

	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := m.writeFile(m.path(name), h); err != nil {
		return err
	}

	pointer := filepath.Join(m.dir, lastSessionFile)
	if err := os.WriteFile(pointer, []byte(name), 0644); err != nil {
		logging.Get(logging.CategorySession).Warn("Failed to update last-session pointer: %v", err)
	}

	logging.Session("Saved conversation %q: %d messages", name, len(h.Messages))
	return nil
}

// writeFile performs a write-then-rename so a crash mid-write never
// truncates the previous document.
func (m *Manager) writeFile(path string, h *History) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// LastSession returns the name of the most recently written conversation,
// or "" when none exists.
func (m *Manager) LastSession() string {
	data, err := os.ReadFile(filepath.Join(m.dir, lastSessionFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// List returns the names of persisted conversations.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

// Delete removes a conversation and its sub-agent histories. Used when the
// user starts a new session under an existing name.
func (m *Manager) Delete(name string) error {
	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	delete(m.loaded, name)
	m.mu.Unlock()

	if err := os.Remove(m.path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	subDir := filepath.Join(m.dir, "subagents", sanitizeName(name))
	if err := os.RemoveAll(subDir); err != nil {
		return err
	}
	return nil
}

// Sub-agent conversations live in a separate keyed store under the parent
// conversation name so a delegate never contaminates the parent transcript.

func (m *Manager) subAgentPath(parent, agent string) string {
	return filepath.Join(m.dir, "subagents", sanitizeName(parent), sanitizeName(agent)+".json")
}

// LoadSubAgent reads the history for a sub-agent under a parent conversation.
func (m *Manager) LoadSubAgent(parent, agent string) (*History, error) {
	data, err := os.ReadFile(m.subAgentPath(parent, agent))
	if err != nil {
		if os.IsNotExist(err) {
			return NewHistory(), nil
		}
		return nil, fmt.Errorf("failed to read sub-agent history: %w", err)
	}
	return coerceHistory(parent+"/"+agent, data), nil
}

// SaveSubAgent writes a sub-agent history under its parent conversation.
func (m *Manager) SaveSubAgent(parent, agent string, h *History) error {
	return m.writeFile(m.subAgentPath(parent, agent), h)
}
