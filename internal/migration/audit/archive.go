package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/qiniu/rulemigrator/internal/migration/service"
	"github.com/rs/zerolog/log"
)

// Archive reads through the cache into the store and writes to both.
type Archive struct {
	store Store
	cache Cache
}

func NewArchive(store Store, cache Cache) *Archive {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Archive{store: store, cache: cache}
}

// Save persists report. A cache failure is logged and does not fail the save.
func (a *Archive) Save(ctx context.Context, report *service.Report) error {
	if err := a.store.SaveRun(ctx, report); err != nil {
		return fmt.Errorf("save run %s: %w", report.ID, err)
	}
	if err := a.cache.Set(ctx, report); err != nil {
		log.Warn().Err(err).Str("run_id", report.ID).Msg("failed to cache migration report")
	}
	return nil
}

// Load returns the report for id, preferring the cache.
func (a *Archive) Load(ctx context.Context, id string) (*service.Report, error) {
	if report, ok, err := a.cache.Get(ctx, id); err != nil {
		log.Warn().Err(err).Str("run_id", id).Msg("report cache lookup failed")
	} else if ok {
		return report, nil
	}
	report, err := a.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Set(ctx, report); err != nil {
		log.Warn().Err(err).Str("run_id", id).Msg("failed to cache migration report")
	}
	return report, nil
}

// MemStore keeps runs in process memory. It is used when no database is configured.
type MemStore struct {
	mu   sync.RWMutex
	runs map[string]*service.Report
}

func NewMemStore() *MemStore { return &MemStore{runs: map[string]*service.Report{}} }

func (m *MemStore) SaveRun(_ context.Context, report *service.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[report.ID] = report
	return nil
}

func (m *MemStore) GetRun(_ context.Context, id string) (*service.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return report, nil
}
