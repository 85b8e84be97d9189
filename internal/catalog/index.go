package catalog

import (
	"context"
	"sort"

	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/slug"
)

// PairSource yields the distinct (category, subcategory) pairs for a filter.
type PairSource interface {
	FetchDistinctPairs(ctx context.Context, filter domain.Filter) ([]domain.CategoryPair, error)
}

// BuildIndex aggregates the distinct category pairs of filter into a category
// tree ordered by name. Rows without a category are ignored; rows without a
// subcategory only contribute their category.
func BuildIndex(ctx context.Context, source PairSource, filter domain.Filter) (*domain.CategoryIndex, error) {
	pairs, err := source.FetchDistinctPairs(ctx, filter)
	if err != nil {
		return nil, err
	}

	subs := make(map[string]map[string]struct{})
	for _, pair := range pairs {
		if pair.Category == "" {
			continue
		}
		set, ok := subs[pair.Category]
		if !ok {
			set = make(map[string]struct{})
			subs[pair.Category] = set
		}
		if pair.Subcategory != "" {
			set[pair.Subcategory] = struct{}{}
		}
	}

	nodes := make([]*domain.CategoryNode, 0, len(subs))
	for name, set := range subs {
		names := make([]string, 0, len(set))
		for sub := range set {
			names = append(names, sub)
		}
		sort.Strings(names)

		nodes = append(nodes, &domain.CategoryNode{
			Name:             name,
			Slug:             slug.Slugify(name),
			SubcategoryCount: len(names),
			Subcategories:    names,
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})

	return domain.NewCategoryIndex(filter, nodes), nil
}
