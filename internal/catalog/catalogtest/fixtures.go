package catalogtest

import (
	"fmt"

	"partscatalog/sitemap/internal/domain"
)

// Grid builds a catalog with the given number of categories, subcategories per
// category and items per subcategory. Names are unique and zero padded so that
// name order equals generation order.
func Grid(categories, subcategories, itemsPerSub int) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, categories*subcategories*itemsPerSub)
	n := 0
	for c := 1; c <= categories; c++ {
		for s := 1; s <= subcategories; s++ {
			for i := 1; i <= itemsPerSub; i++ {
				n++
				items = append(items, domain.CatalogItem{
					ID:           fmt.Sprintf("id-%06d", n),
					Name:         fmt.Sprintf("Part %06d", n),
					Category:     fmt.Sprintf("Category %d", c),
					Subcategory:  fmt.Sprintf("Subcategory %d.%d", c, s),
					Manufacturer: fmt.Sprintf("Maker %d", (n%2)+1),
				})
			}
		}
	}
	return items
}
