// Package session tracks process sessions across restarts: a current
// session snapshot plus a bounded history log. Session state is
// reporting-only; nothing in the store depends on it for correctness.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"mnemo/internal/logging"
)

// historyLimit bounds sessions.log; oldest entries roll off.
const historyLimit = 100

// State is one session's snapshot.
type State struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	EndedAt       time.Time `json:"ended_at,omitempty"`
	Ingests       int       `json:"ingests"`
	Retrievals    int       `json:"retrievals"`
	// Clean is false when the snapshot was recovered from a session
	// that never closed.
	Clean bool `json:"clean"`
}

// Counter lets the manager bump the store's persistent session count
// without importing the store package.
type Counter interface {
	BumpSessionCount() error
}

// Manager owns session.json and sessions.log under the store root.
type Manager struct {
	mu      sync.Mutex
	root    string
	counter Counter
	current *State
	now     func() time.Time
}

// New creates a manager rooted at the store directory.
func New(root string, counter Counter) *Manager {
	return &Manager{root: root, counter: counter, now: time.Now}
}

func (m *Manager) statePath() string   { return filepath.Join(m.root, "session.json") }
func (m *Manager) historyPath() string { return filepath.Join(m.root, "sessions.log") }

// Begin starts a new session. A leftover session.json from a previous
// run means that run never closed; its snapshot is appended to history
// marked unclean before the new session replaces it.
func (m *Manager) Begin() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stale := m.readState(); stale != nil {
		stale.Clean = false
		if stale.EndedAt.IsZero() {
			stale.EndedAt = stale.LastHeartbeat
		}
		if err := m.appendHistory(stale); err != nil {
			logging.Session("Could not archive stale session %s: %v", stale.ID, err)
		} else {
			logging.Session("Recovered unclean session %s (started %s)", stale.ID, stale.StartedAt.Format(time.RFC3339))
		}
	}

	now := m.now()
	m.current = &State{
		ID:            uuid.NewString(),
		StartedAt:     now,
		LastHeartbeat: now,
		Clean:         true,
	}
	if err := m.writeState(); err != nil {
		return nil, err
	}
	if m.counter != nil {
		if err := m.counter.BumpSessionCount(); err != nil {
			logging.Session("Session count bump failed: %v", err)
		}
	}
	logging.Session("Session %s started", m.current.ID)
	snapshot := *m.current
	return &snapshot, nil
}

// Heartbeat refreshes the live snapshot and its activity counters.
func (m *Manager) Heartbeat(ingests, retrievals int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("session: no active session")
	}
	m.current.LastHeartbeat = m.now()
	m.current.Ingests += ingests
	m.current.Retrievals += retrievals
	return m.writeState()
}

// Close ends the current session: the final snapshot moves from
// session.json into the history log.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	m.current.EndedAt = m.now()
	m.current.LastHeartbeat = m.current.EndedAt
	if err := m.appendHistory(m.current); err != nil {
		return err
	}
	if err := os.Remove(m.statePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: remove state: %w", err)
	}
	logging.Session("Session %s closed (%d ingests, %d retrievals)", m.current.ID, m.current.Ingests, m.current.Retrievals)
	m.current = nil
	return nil
}

// Current returns a copy of the live session, or nil outside a session.
func (m *Manager) Current() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	snapshot := *m.current
	return &snapshot
}

// History returns past sessions, oldest first.
func (m *Manager) History() ([]State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readHistory()
}

func (m *Manager) readState() *State {
	data, err := os.ReadFile(m.statePath())
	if err != nil {
		return nil
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		logging.Session("Corrupt session.json, discarding: %v", err)
		return nil
	}
	return &st
}

func (m *Manager) writeState() error {
	data, err := json.MarshalIndent(m.current, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}
	tmp, err := os.CreateTemp(m.root, ".session-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("session: write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("session: close temp: %w", err)
	}
	if err := os.Rename(name, m.statePath()); err != nil {
		os.Remove(name)
		return fmt.Errorf("session: rename state: %w", err)
	}
	return nil
}

// appendHistory adds one entry (newest-last) and rewrites the log when it
// grows past the limit.
func (m *Manager) appendHistory(st *State) error {
	entries, err := m.readHistory()
	if err != nil {
		logging.Session("Unreadable sessions.log, starting fresh: %v", err)
		entries = nil
	}
	entries = append(entries, *st)
	if len(entries) > historyLimit {
		entries = entries[len(entries)-historyLimit:]
	}

	tmp, err := os.CreateTemp(m.root, ".sessions-*")
	if err != nil {
		return fmt.Errorf("session: temp log: %w", err)
	}
	name := tmp.Name()
	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			tmp.Close()
			os.Remove(name)
			return fmt.Errorf("session: encode history: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("session: flush history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("session: close log: %w", err)
	}
	if err := os.Rename(name, m.historyPath()); err != nil {
		os.Remove(name)
		return fmt.Errorf("session: rename log: %w", err)
	}
	return nil
}

// readHistory parses sessions.log as json-lines, skipping bad lines.
func (m *Manager) readHistory() ([]State, error) {
	f, err := os.Open(m.historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: open log: %w", err)
	}
	defer f.Close()

	var entries []State
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var st State
		if err := json.Unmarshal(line, &st); err != nil {
			logging.SessionDebug("Skipping bad history line: %v", err)
			continue
		}
		entries = append(entries, st)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("session: scan log: %w", err)
	}
	return entries, nil
}
