package store

import (
	"context"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
)

// MemoryStore はプロセス内のキャッシュに保存する Store。
// ttl が 0 ならスナップショットは期限切れにならない
type MemoryStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	cache *gocache.Cache
}

// NewMemoryStore は ttl で期限切れになる MemoryStore を返す
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		return nil
	}
	if s.ttl > 0 {
		s.cache = gocache.New(s.ttl, 2*s.ttl)
	} else {
		s.cache = gocache.New(gocache.NoExpiration, 0)
	}
	return nil
}

func (s *MemoryStore) getCache() (*gocache.Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache == nil {
		return nil, errors.WithStack(ErrNotInitialized)
	}
	return s.cache, nil
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	c, err := s.getCache()
	if err != nil {
		return err
	}
	snap.Payload = append([]byte(nil), snap.Payload...)
	c.Set(snap.ID, snap, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Snapshot, bool, error) {
	c, err := s.getCache()
	if err != nil {
		return Snapshot{}, false, err
	}
	v, found := c.Get(id)
	if !found {
		return Snapshot{}, false, nil
	}
	snap, ok := v.(Snapshot)
	if !ok {
		logger().Error("wrong type in snapshot cache", log.SnapshotIDKey, id)
		return Snapshot{}, false, nil
	}
	snap.Payload = append([]byte(nil), snap.Payload...)
	return snap, true, nil
}

func (s *MemoryStore) List(_ context.Context, kind string) ([]Snapshot, error) {
	c, err := s.getCache()
	if err != nil {
		return nil, err
	}
	var out []Snapshot
	for _, item := range c.Items() {
		snap, ok := item.Object.(Snapshot)
		if !ok || (kind != "" && snap.Kind != kind) {
			continue
		}
		out = append(out, snap)
	}
	sortSnapshots(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	c, err := s.getCache()
	if err != nil {
		return err
	}
	c.Delete(id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		s.cache.Flush()
		s.cache = nil
	}
	return nil
}

func sortSnapshots(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
		}
		return snaps[i].ID < snaps[j].ID
	})
}
