package domain

// CategoryNode aggregates the subcategories seen for one category.
type CategoryNode struct {
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	SubcategoryCount int      `json:"subcategory_count"`
	Subcategories    []string `json:"subcategories"` // Sorted, distinct
}

// CategoryIndex is the category tree for one filter, ordered by category name.
type CategoryIndex struct {
	Filter Filter          `json:"filter"`
	Nodes  []*CategoryNode `json:"nodes"`

	byName map[string]*CategoryNode
}

func NewCategoryIndex(filter Filter, nodes []*CategoryNode) *CategoryIndex {
	idx := &CategoryIndex{
		Filter: filter,
		Nodes:  nodes,
		byName: make(map[string]*CategoryNode, len(nodes)),
	}
	for _, n := range nodes {
		idx.byName[n.Name] = n
	}
	return idx
}

// Lookup returns the node for an exact category name.
func (c *CategoryIndex) Lookup(name string) (*CategoryNode, bool) {
	n, ok := c.byName[name]
	return n, ok
}

// Subcategories returns the category name -> subcategory names mapping.
func (c *CategoryIndex) Subcategories() map[string][]string {
	out := make(map[string][]string, len(c.Nodes))
	for _, n := range c.Nodes {
		out[n.Name] = n.Subcategories
	}
	return out
}

// EntryCount is the number of sitemap entries the index produces: one per
// category plus one per subcategory.
func (c *CategoryIndex) EntryCount() int {
	count := 0
	for _, n := range c.Nodes {
		count += 1 + n.SubcategoryCount
	}
	return count
}
