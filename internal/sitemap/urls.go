package sitemap

import (
	"net/url"
	"strconv"
	"strings"

	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/slug"
)

// Location joins base with the given path segments. Each segment is
// percent-encoded exactly once: input that already carries valid escapes is
// normalised rather than encoded again.
func Location(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(EscapeSegment(seg))
	}
	if len(segments) == 0 {
		b.WriteByte('/')
	}
	return b.String()
}

// EscapeSegment percent-encodes a single path segment without double-encoding.
func EscapeSegment(seg string) string {
	if strings.Contains(seg, "%") {
		if raw, err := url.PathUnescape(seg); err == nil {
			return url.PathEscape(raw)
		}
	}
	return url.PathEscape(seg)
}

// Segment is the URL segment for a catalog name: its slug, or the raw name
// when nothing of it survives slugging (e.g. non-Latin names).
func Segment(name string) string {
	if s := slug.Slugify(name); s != "" && strings.Trim(s, "-") != "" {
		return s
	}
	return strings.TrimSpace(name)
}

// URLBuilder produces the public URLs of the catalog site. All modes share it
// so a name always maps to the same location.
type URLBuilder struct {
	base string
}

func NewURLBuilder(base string) URLBuilder {
	return URLBuilder{base: strings.TrimRight(base, "/")}
}

func (b URLBuilder) Base() string {
	return b.base
}

// Page returns the location of a static page path such as "/search".
func (b URLBuilder) Page(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return Location(b.base)
	}
	return Location(b.base, strings.Split(path, "/")...)
}

func (b URLBuilder) Category(category string) string {
	return Location(b.base, "categories", Segment(category))
}

func (b URLBuilder) Subcategory(category, subcategory string) string {
	return Location(b.base, "categories", Segment(category), Segment(subcategory))
}

func (b URLBuilder) Manufacturer(manufacturer string) string {
	return Location(b.base, "manufacturers", Segment(manufacturer))
}

func (b URLBuilder) ManufacturerCategory(manufacturer, category string) string {
	return Location(b.base, "manufacturers", Segment(manufacturer), Segment(category))
}

func (b URLBuilder) ManufacturerSubcategory(manufacturer, category, subcategory string) string {
	return Location(b.base, "manufacturers", Segment(manufacturer), Segment(category), Segment(subcategory))
}

func (b URLBuilder) Item(item domain.CatalogItem) string {
	if maker := Segment(item.Manufacturer); maker != "" {
		return Location(b.base, "parts", maker, Segment(item.Name))
	}
	return Location(b.base, "parts", Segment(item.Name))
}

// Document returns the public location of a sitemap file.
func (b URLBuilder) Document(name string) string {
	return Location(b.base, name)
}

// DocumentPage is Document with a page query for paged on-demand listings.
// Page 1 is the bare document.
func (b URLBuilder) DocumentPage(name string, page int) string {
	if page <= 1 {
		return b.Document(name)
	}
	return b.Document(name) + "?page=" + strconv.Itoa(page)
}
