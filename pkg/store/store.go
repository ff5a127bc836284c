// Package store persists generated artifacts per project with a
// version counter and per-version diff statistics.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Artifact is one persisted generated file.
type Artifact struct {
	ProjectID    string    `json:"project_id"`
	Path         string    `json:"path"`
	Content      string    `json:"content"`
	Version      int       `json:"version"`
	CharsAdded   int       `json:"chars_added"`
	CharsRemoved int       `json:"chars_removed"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is an in-memory artifact store safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	projects map[string]map[string]*Artifact
	dmp      *diffmatchpatch.DiffMatchPatch
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		projects: make(map[string]map[string]*Artifact),
		dmp:      diffmatchpatch.New(),
		now:      time.Now,
	}
}

// Upsert creates or overwrites the artifact at path. The first write is
// version 1; a write with changed content increments the version and
// records diff statistics against the previous content. Re-writing
// identical content changes nothing, so the call is idempotent.
func (s *Store) Upsert(projectID, path, content string) (*Artifact, error) {
	if projectID == "" || path == "" {
		return nil, fmt.Errorf("store: project id and path are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, ok := s.projects[projectID]
	if !ok {
		files = make(map[string]*Artifact)
		s.projects[projectID] = files
	}

	existing, ok := files[path]
	if !ok {
		artifact := &Artifact{
			ProjectID:  projectID,
			Path:       path,
			Content:    content,
			Version:    1,
			CharsAdded: len(content),
			UpdatedAt:  s.now(),
		}
		files[path] = artifact
		return copyOf(artifact), nil
	}

	if existing.Content == content {
		return copyOf(existing), nil
	}

	added, removed := s.diffStats(existing.Content, content)
	existing.Content = content
	existing.Version++
	existing.CharsAdded = added
	existing.CharsRemoved = removed
	existing.UpdatedAt = s.now()
	return copyOf(existing), nil
}

// Get returns the artifact at path, or nil.
func (s *Store) Get(projectID, path string) *Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if artifact, ok := s.projects[projectID][path]; ok {
		return copyOf(artifact)
	}
	return nil
}

// ListByProject returns every artifact of a project ordered by path.
func (s *Store) ListByProject(projectID string) []*Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.projects[projectID]
	out := make([]*Artifact, 0, len(files))
	for _, artifact := range files {
		out = append(out, copyOf(artifact))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ExportDir writes a project's artifacts under dir, creating parent
// directories as needed.
func (s *Store) ExportDir(projectID, dir string) error {
	for _, artifact := range s.ListByProject(projectID) {
		target := filepath.Join(dir, filepath.FromSlash(artifact.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("store: create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, []byte(artifact.Content), 0644); err != nil {
			return fmt.Errorf("store: write %s: %w", target, err)
		}
	}
	return nil
}

// diffStats computes characters added and removed between two versions.
func (s *Store) diffStats(before, after string) (added, removed int) {
	diffs := s.dmp.DiffMain(before, after, false)
	diffs = s.dmp.DiffCleanupSemantic(diffs)
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			added += len(diff.Text)
		case diffmatchpatch.DiffDelete:
			removed += len(diff.Text)
		}
	}
	return added, removed
}

func copyOf(a *Artifact) *Artifact {
	c := *a
	return &c
}

// Summary describes a project's stored artifacts in one line, for logs.
func (s *Store) Summary(projectID string) string {
	artifacts := s.ListByProject(projectID)
	if len(artifacts) == 0 {
		return "no artifacts"
	}
	revised := 0
	for _, a := range artifacts {
		if a.Version > 1 {
			revised++
		}
	}
	parts := []string{fmt.Sprintf("%d files", len(artifacts))}
	if revised > 0 {
		parts = append(parts, fmt.Sprintf("%d revised", revised))
	}
	return strings.Join(parts, ", ")
}
