package domain

// CatalogItem is a single row of the parts catalog. It is owned by the data
// store and never mutated here.
type CatalogItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`         // Used as the item's URL segment
	Category     string `json:"category"`     // e.g. "Brakes"
	Subcategory  string `json:"subcategory"`  // e.g. "Brake Pads"
	Manufacturer string `json:"manufacturer"` // e.g. "Bosch"
}

// Filter narrows a catalog query. Empty fields do not constrain the result.
type Filter struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Category     string `json:"category,omitempty"`
}

func (f Filter) IsZero() bool {
	return f.Manufacturer == "" && f.Category == ""
}

// CatalogBatch is one page of catalog rows plus the total row count of the filter.
type CatalogBatch struct {
	Offset int           `json:"offset"`
	Items  []CatalogItem `json:"items"`
	Total  int           `json:"total"`
}

// CategoryPair is a distinct (category, subcategory) combination.
type CategoryPair struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// CategoryCount is the number of catalog rows in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Items    int    `json:"items"`
}
