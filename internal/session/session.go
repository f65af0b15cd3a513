// Package session tracks active agents and the current working-task
// pointer. Both stores are small YAML files under the data dir, separate
// from the task tree and never touched by tree transactions.
package session

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/untoldecay/backlog/internal/frontmatter"
	"github.com/untoldecay/backlog/internal/types"
)

const (
	sessionsFile = ".sessions.yaml"
	contextFile  = ".context.yaml"
)

// Session is one agent's presence record.
type Session struct {
	ID            string    `yaml:"id" json:"id"`
	Agent         string    `yaml:"agent" json:"agent"`
	TaskID        string    `yaml:"task_id,omitempty" json:"task_id,omitempty"`
	StartedAt     time.Time `yaml:"started_at" json:"started_at"`
	LastHeartbeat time.Time `yaml:"last_heartbeat" json:"last_heartbeat"`
	Progress      string    `yaml:"progress,omitempty" json:"progress,omitempty"`
}

// Stale reports whether the last heartbeat is older than threshold.
func (s *Session) Stale(now time.Time, threshold time.Duration) bool {
	return now.Sub(s.LastHeartbeat) > threshold
}

type sessionsDoc struct {
	Sessions []Session `yaml:"sessions"`
}

// Context is the working-task pointer. It is independent of claiming;
// clearing it is an explicit operation.
type Context struct {
	TaskID    string    `yaml:"task_id,omitempty" json:"task_id,omitempty"`
	Note      string    `yaml:"note,omitempty" json:"note,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Store reads and writes both files for one data dir.
type Store struct {
	dataDir string
}

// NewStore binds a store to a data dir.
func NewStore(dataDir string) *Store { return &Store{dataDir: dataDir} }

func (s *Store) sessionsPath() string { return filepath.Join(s.dataDir, sessionsFile) }
func (s *Store) contextPath() string  { return filepath.Join(s.dataDir, contextFile) }

// List returns all recorded sessions.
func (s *Store) List() ([]Session, error) {
	var doc sessionsDoc
	if err := frontmatter.ReadYAML(s.sessionsPath(), &doc); err != nil {
		if os.IsNotExist(errUnwrap(err)) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Sessions, nil
}

// Start records a new session for agent and returns it.
func (s *Store) Start(agent, taskID string, now time.Time) (*Session, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	session := Session{
		ID:            uuid.NewString(),
		Agent:         agent,
		TaskID:        taskID,
		StartedAt:     now.UTC(),
		LastHeartbeat: now.UTC(),
	}
	sessions = append(sessions, session)
	if err := s.save(sessions); err != nil {
		return nil, err
	}
	return &session, nil
}

// Heartbeat refreshes an agent's newest session and stores the progress
// string.
func (s *Store) Heartbeat(agent, progress string, now time.Time) (*Session, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range sessions {
		if sessions[i].Agent == agent {
			idx = i
		}
	}
	if idx < 0 {
		return nil, types.E(types.CodeNotFound, "no active session for agent %s", agent)
	}
	sessions[idx].LastHeartbeat = now.UTC()
	if progress != "" {
		sessions[idx].Progress = progress
	}
	if err := s.save(sessions); err != nil {
		return nil, err
	}
	return &sessions[idx], nil
}

// End removes every session belonging to agent.
func (s *Store) End(agent string) (int, error) {
	sessions, err := s.List()
	if err != nil {
		return 0, err
	}
	kept := sessions[:0]
	removed := 0
	for _, sess := range sessions {
		if sess.Agent == agent {
			removed++
			continue
		}
		kept = append(kept, sess)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(kept)
}

func (s *Store) save(sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	return frontmatter.WriteYAML(s.sessionsPath(), sessionsDoc{Sessions: sessions})
}

// Context reads the working-task pointer; a missing file is an empty
// pointer.
func (s *Store) Context() (*Context, error) {
	var ctx Context
	if err := frontmatter.ReadYAML(s.contextPath(), &ctx); err != nil {
		if os.IsNotExist(errUnwrap(err)) {
			return &Context{}, nil
		}
		return nil, err
	}
	return &ctx, nil
}

// SetContext persists the working-task pointer.
func (s *Store) SetContext(taskID, note string, now time.Time) error {
	return frontmatter.WriteYAML(s.contextPath(), Context{
		TaskID:    taskID,
		Note:      note,
		UpdatedAt: now.UTC(),
	})
}

// ClearContext removes the pointer file.
func (s *Store) ClearContext() error {
	if err := os.Remove(s.contextPath()); err != nil && !os.IsNotExist(err) {
		return types.Wrap(types.CodeIOError, err, "clearing context: %v", err)
	}
	return nil
}

func errUnwrap(err error) error {
	var e *types.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
