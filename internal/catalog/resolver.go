package catalog

import (
	"context"
	"fmt"

	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/repository"
	"partscatalog/sitemap/internal/slug"

	log "github.com/sirupsen/logrus"
)

const DefaultResolveScanLimit = 500

// Resolver maps a URL slug back to the canonical manufacturer or category
// name. It re-queries the store on every call and keeps no cache.
type Resolver struct {
	repo      repository.CatalogRepository
	scanLimit int
}

func NewResolver(repo repository.CatalogRepository, scanLimit int) *Resolver {
	if scanLimit <= 0 {
		scanLimit = DefaultResolveScanLimit
	}
	return &Resolver{
		repo:      repo,
		scanLimit: scanLimit,
	}
}

func (r *Resolver) Category(ctx context.Context, s string) (string, error) {
	return r.resolve(ctx, "category", s, r.repo.FindCategories, r.categories)
}

func (r *Resolver) Manufacturer(ctx context.Context, s string) (string, error) {
	return r.resolve(ctx, "manufacturer", s, r.repo.FindManufacturers, r.repo.Manufacturers)
}

func (r *Resolver) categories(ctx context.Context) ([]string, error) {
	counts, err := r.repo.CountByCategory(ctx, domain.Filter{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(counts))
	for _, c := range counts {
		names = append(names, c.Category)
	}
	return names, nil
}

// resolve returns the first name, in name order, whose slug is s. This is the
// same name that wins a slug collision during a full run.
//
// The store is probed with the slug's key, which every name sharing the slug
// also shares. When the probe comes back without an exact match (it hit the
// scan limit, or the store lower-cases a rune differently) every distinct
// name is scanned instead.
func (r *Resolver) resolve(
	ctx context.Context,
	kind, s string,
	find func(ctx context.Context, key string, limit int) ([]string, error),
	all func(ctx context.Context) ([]string, error),
) (string, error) {
	key := slug.Key(s)
	if key == "" {
		return "", fmt.Errorf("%s %q: %w", kind, s, domain.ErrNotFound)
	}

	candidates, err := find(ctx, key, r.scanLimit)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s %q: %w", kind, s, err)
	}
	if name, ok := firstWithSlug(candidates, s); ok {
		return name, nil
	}

	log.Debugf("Probe for %s %q found no match among %d candidates, scanning all names", kind, s, len(candidates))
	names, err := all(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s %q: %w", kind, s, err)
	}
	if name, ok := firstWithSlug(names, s); ok {
		return name, nil
	}

	return "", fmt.Errorf("%s %q: %w", kind, s, domain.ErrNotFound)
}

func firstWithSlug(names []string, s string) (string, bool) {
	for _, name := range names {
		if slug.Slugify(name) == s {
			return name, true
		}
	}
	return "", false
}
