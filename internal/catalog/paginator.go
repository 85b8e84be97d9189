package catalog

import (
	"context"
	"fmt"

	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const DefaultBatchSize = 2000

// BatchFunc receives each fetched batch in catalog order. Returning an error
// stops the sweep.
type BatchFunc func(batch *domain.CatalogBatch) error

// Paginator walks the catalog in bounded, name-ordered batches. It issues one
// query at a time, so at most one batch is held in memory.
type Paginator struct {
	repo      repository.CatalogRepository
	batchSize int
	rl        ratelimit.Limiter
}

// NewPaginator creates a paginator. batchesPerSecond <= 0 disables pacing.
func NewPaginator(repo repository.CatalogRepository, batchSize, batchesPerSecond int) *Paginator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	rl := ratelimit.NewUnlimited()
	if batchesPerSecond > 0 {
		rl = ratelimit.New(batchesPerSecond)
	}

	return &Paginator{
		repo:      repo,
		batchSize: batchSize,
		rl:        rl,
	}
}

func (p *Paginator) BatchSize() int {
	return p.batchSize
}

func (p *Paginator) FetchBatch(ctx context.Context, filter domain.Filter, offset, limit int) (*domain.CatalogBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.rl.Take()

	batch, err := p.repo.FetchBatch(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch at offset %d: %w", offset, err)
	}
	return batch, nil
}

func (p *Paginator) FetchDistinctPairs(ctx context.Context, filter domain.Filter) ([]domain.CategoryPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.rl.Take()

	pairs, err := p.repo.FetchDistinctPairs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category pairs: %w", err)
	}
	return pairs, nil
}

// Sweep fetches successive batches starting at offset until the reported total
// is exhausted, calling fn for each one. maxRows > 0 stops after that many
// rows. Any fetch error aborts the sweep; no page is skipped. It returns the
// number of rows visited.
func (p *Paginator) Sweep(ctx context.Context, filter domain.Filter, offset, maxRows int, fn BatchFunc) (int, error) {
	visited := 0
	for {
		limit := p.batchSize
		if maxRows > 0 && maxRows-visited < limit {
			limit = maxRows - visited
		}
		if limit <= 0 {
			return visited, nil
		}

		batch, err := p.FetchBatch(ctx, filter, offset, limit)
		if err != nil {
			return visited, err
		}
		if len(batch.Items) == 0 {
			return visited, nil
		}

		if err := fn(batch); err != nil {
			return visited, err
		}

		visited += len(batch.Items)
		offset += len(batch.Items)

		log.Debugf("Fetched %d/%d catalog rows", offset, batch.Total)

		if offset >= batch.Total {
			return visited, nil
		}
	}
}
