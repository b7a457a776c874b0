// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package job

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// Store manages jobs in memory. All methods hand out copies.
type Store interface {
	Add(job *Job) error
	Get(id string) (*Job, error)
	List(ids []string, reference string) []*Job
	// Update applies fn to the stored job under the store lock.
	Update(id string, fn func(*Job)) (*Job, error)
	Delete(id string) error
}

type store struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewStore creates a job store
func NewStore() Store {
	return &store{
		jobs: make(map[string]*Job),
	}
}

func (s *store) Add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrJobExists
	}

	now := time.Now().Unix()
	c := job.Clone()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.jobs[job.ID] = c
	return nil
}

func (s *store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// List filters by ids and reference, both optional. Oldest first.
func (s *store) List(ids []string, reference string) []*Job {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if len(reference) > 0 && j.Reference != reference {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, j.ID) {
			continue
		}
		out = append(out, j.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt != out[b].CreatedAt {
			return out[a].CreatedAt < out[b].CreatedAt
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (s *store) Update(id string, fn func(*Job)) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(j)
	j.UpdatedAt = time.Now().Unix()
	return j.Clone(), nil
}

func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}
