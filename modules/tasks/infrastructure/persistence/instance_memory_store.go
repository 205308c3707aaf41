package persistence

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type InstanceMemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]types.TaskInstance
}

func NewInstanceMemoryStore() *InstanceMemoryStore {
	return &InstanceMemoryStore{items: make(map[string]map[string]types.TaskInstance)}
}

func cloneInstance(inst types.TaskInstance) types.TaskInstance {
	inst.Values = maps.Clone(inst.Values)
	return inst
}

func (s *InstanceMemoryStore) Create(_ context.Context, inst types.TaskInstance) (types.TaskInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team := s.items[inst.TeamID]
	if team == nil {
		team = make(map[string]types.TaskInstance)
		s.items[inst.TeamID] = team
	}
	if _, ok := team[inst.ID]; ok {
		return types.TaskInstance{}, fmt.Errorf("%w: task instance %q already exists", ruleerr.ErrInvalidInput, inst.ID)
	}
	team[inst.ID] = cloneInstance(inst)
	return cloneInstance(inst), nil
}

func (s *InstanceMemoryStore) Get(_ context.Context, teamID string, id string) (types.TaskInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.items[teamID][id]
	if !ok {
		return types.TaskInstance{}, fmt.Errorf("%w: task instance %q", ruleerr.ErrNotFound, id)
	}
	return cloneInstance(inst), nil
}

func (s *InstanceMemoryStore) ListForMatter(_ context.Context, teamID string, matterID string) ([]types.TaskInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.TaskInstance, 0)
	for _, inst := range s.items[teamID] {
		if inst.MatterID == matterID {
			out = append(out, cloneInstance(inst))
		}
	}
	slices.SortFunc(out, func(a, b types.TaskInstance) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InstanceMemoryStore) Update(_ context.Context, inst types.TaskInstance) (types.TaskInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[inst.TeamID][inst.ID]
	if !ok {
		return types.TaskInstance{}, fmt.Errorf("%w: task instance %q", ruleerr.ErrNotFound, inst.ID)
	}
	prev.Status = inst.Status
	prev.Values = maps.Clone(inst.Values)
	prev.UpdatedAt = inst.UpdatedAt
	s.items[inst.TeamID][inst.ID] = prev
	return cloneInstance(prev), nil
}

func (s *InstanceMemoryStore) Delete(_ context.Context, teamID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[teamID][id]; !ok {
		return fmt.Errorf("%w: task instance %q", ruleerr.ErrNotFound, id)
	}
	delete(s.items[teamID], id)
	return nil
}
