// Package catalogtest provides an in-memory catalog repository for tests.
package catalogtest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"partscatalog/sitemap/internal/domain"
)

// Repository is an in-memory repository.CatalogRepository. Rows are kept in
// name order, matching the ordering contract of the real store.
type Repository struct {
	mu    sync.Mutex
	items []domain.CatalogItem

	// FetchErr, when set, is consulted before every FetchBatch call.
	FetchErr func(offset int) error
	// PairsErr is returned by FetchDistinctPairs when set.
	PairsErr error

	// Offsets records the offset of every FetchBatch call.
	Offsets []int
}

func NewRepository(items ...domain.CatalogItem) *Repository {
	r := &Repository{}
	r.Add(items...)
	return r
}

func (r *Repository) Add(items ...domain.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, items...)
	sort.SliceStable(r.items, func(i, j int) bool {
		if r.items[i].Name != r.items[j].Name {
			return r.items[i].Name < r.items[j].Name
		}
		return r.items[i].ID < r.items[j].ID
	})
}

func (r *Repository) FetchBatch(ctx context.Context, filter domain.Filter, offset, limit int) (*domain.CatalogBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Offsets = append(r.Offsets, offset)
	if r.FetchErr != nil {
		if err := r.FetchErr(offset); err != nil {
			return nil, err
		}
	}

	matched := r.match(filter)
	batch := &domain.CatalogBatch{Offset: offset, Total: len(matched)}
	if offset >= len(matched) {
		return batch, nil
	}
	end := min(offset+limit, len(matched))
	batch.Items = append([]domain.CatalogItem(nil), matched[offset:end]...)
	return batch, nil
}

func (r *Repository) FetchDistinctPairs(ctx context.Context, filter domain.Filter) ([]domain.CategoryPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.PairsErr != nil {
		return nil, r.PairsErr
	}

	seen := make(map[domain.CategoryPair]struct{})
	var pairs []domain.CategoryPair
	for _, item := range r.match(filter) {
		pair := domain.CategoryPair{Category: item.Category, Subcategory: item.Subcategory}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Category != pairs[j].Category {
			return pairs[i].Category < pairs[j].Category
		}
		return pairs[i].Subcategory < pairs[j].Subcategory
	})
	return pairs, nil
}

func (r *Repository) CountByCategory(ctx context.Context, filter domain.Filter) ([]domain.CategoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, item := range r.match(filter) {
		counts[item.Category]++
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.CategoryCount{Category: name, Items: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r *Repository) Manufacturers(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.distinct(func(item domain.CatalogItem) string { return item.Manufacturer }, "", 0), nil
}

func (r *Repository) FindCategories(ctx context.Context, key string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.distinct(func(item domain.CatalogItem) string { return item.Category }, key, limit), nil
}

func (r *Repository) FindManufacturers(ctx context.Context, key string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.distinct(func(item domain.CatalogItem) string { return item.Manufacturer }, key, limit), nil
}

func (r *Repository) match(filter domain.Filter) []domain.CatalogItem {
	if filter.IsZero() {
		return r.items
	}
	out := make([]domain.CatalogItem, 0)
	for _, item := range r.items {
		if filter.Manufacturer != "" && item.Manufacturer != filter.Manufacturer {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		out = append(out, item)
	}
	return out
}

// distinct lists the non-empty values of field in name order. A non-empty
// key keeps only values whose lower-cased alphanumerics equal it.
func (r *Repository) distinct(field func(domain.CatalogItem) string, key string, limit int) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, item := range r.items {
		name := field(item)
		if name == "" || (key != "" && alphanumeric(name) != key) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}

func alphanumeric(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(name))
}
