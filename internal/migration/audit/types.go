// Package audit persists migration runs so reports can be fetched later and heuristic
// decisions reviewed after the fact.
package audit

import (
	"context"
	"errors"

	"github.com/qiniu/rulemigrator/internal/migration/service"
)

// ErrRunNotFound is returned when no run exists for an id.
var ErrRunNotFound = errors.New("migration run not found")

// Store keeps every run and its per-rule results.
type Store interface {
	SaveRun(ctx context.Context, report *service.Report) error
	GetRun(ctx context.Context, id string) (*service.Report, error)
}

// Cache holds recently produced reports in front of a Store.
type Cache interface {
	Get(ctx context.Context, id string) (*service.Report, bool, error)
	Set(ctx context.Context, report *service.Report) error
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*service.Report, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, *service.Report) error                  { return nil }
