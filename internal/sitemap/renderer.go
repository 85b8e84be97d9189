package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"partscatalog/sitemap/internal/domain"
)

const (
	Namespace  = "http://www.sitemaps.org/schemas/sitemap/0.9"
	dateLayout = "2006-01-02"
)

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

type xmlSitemapRef struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name        `xml:"sitemapindex"`
	Sitemaps []xmlSitemapRef `xml:"sitemap"`
}

// RenderURLSet streams shard as a <urlset> document. Entries are encoded one
// at a time so the document is never built in memory. An entry without a
// location is a programming error and panics.
func RenderURLSet(w io.Writer, shard *domain.SitemapShard) error {
	enc, err := startDocument(w, "urlset")
	if err != nil {
		return err
	}

	urlStart := xml.StartElement{Name: xml.Name{Local: "url"}}
	for i, entry := range shard.Entries {
		if entry.Loc == "" {
			panic(fmt.Sprintf("sitemap: entry %d of %s has no location", i, shard.Name))
		}
		if err := enc.EncodeElement(toXMLURL(entry), urlStart); err != nil {
			return fmt.Errorf("failed to encode url %s: %w", entry.Loc, err)
		}
	}

	return endDocument(w, enc, "urlset")
}

// RenderIndex streams a <sitemapindex> document pointing at refs.
func RenderIndex(w io.Writer, refs []domain.ShardRef) error {
	enc, err := startDocument(w, "sitemapindex")
	if err != nil {
		return err
	}

	sitemapStart := xml.StartElement{Name: xml.Name{Local: "sitemap"}}
	for i, ref := range refs {
		if ref.Loc == "" {
			panic(fmt.Sprintf("sitemap: index reference %d has no location", i))
		}
		if err := enc.EncodeElement(xmlSitemapRef{
			Loc:     ref.Loc,
			LastMod: formatDate(ref.LastModified),
		}, sitemapStart); err != nil {
			return fmt.Errorf("failed to encode sitemap reference %s: %w", ref.Loc, err)
		}
	}

	return endDocument(w, enc, "sitemapindex")
}

// ParseURLSet reads a <urlset> document back into entries, in document order.
func ParseURLSet(r io.Reader) ([]domain.SitemapEntry, error) {
	var doc xmlURLSet
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse urlset: %w", err)
	}

	entries := make([]domain.SitemapEntry, 0, len(doc.URLs))
	for _, u := range doc.URLs {
		entry := domain.SitemapEntry{
			Loc:        u.Loc,
			ChangeFreq: domain.ChangeFreq(u.ChangeFreq),
		}
		if u.LastMod != "" {
			t, err := time.Parse(dateLayout, u.LastMod)
			if err != nil {
				return nil, fmt.Errorf("invalid lastmod %q for %s: %w", u.LastMod, u.Loc, err)
			}
			entry.LastModified = t
		}
		if u.Priority != "" {
			p, err := strconv.ParseFloat(u.Priority, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid priority %q for %s: %w", u.Priority, u.Loc, err)
			}
			entry.Priority = p
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseIndex reads a <sitemapindex> document back into references.
func ParseIndex(r io.Reader) ([]domain.ShardRef, error) {
	var doc xmlSitemapIndex
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap index: %w", err)
	}

	refs := make([]domain.ShardRef, 0, len(doc.Sitemaps))
	for _, s := range doc.Sitemaps {
		ref := domain.ShardRef{Loc: s.Loc}
		if s.LastMod != "" {
			t, err := time.Parse(dateLayout, s.LastMod)
			if err != nil {
				return nil, fmt.Errorf("invalid lastmod %q for %s: %w", s.LastMod, s.Loc, err)
			}
			ref.LastModified = t
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func startDocument(w io.Writer, root string) (*xml.Encoder, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, fmt.Errorf("failed to write xml header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	start := xml.StartElement{
		Name: xml.Name{Local: root},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: Namespace}},
	}
	if err := enc.EncodeToken(start); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", root, err)
	}
	return enc, nil
}

func endDocument(w io.Writer, enc *xml.Encoder, root string) error {
	if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: root}}); err != nil {
		return fmt.Errorf("failed to close %s: %w", root, err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", root, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to finish %s: %w", root, err)
	}
	return nil
}

func toXMLURL(entry domain.SitemapEntry) xmlURL {
	return xmlURL{
		Loc:        entry.Loc,
		LastMod:    formatDate(entry.LastModified),
		ChangeFreq: entry.ChangeFreq.String(),
		Priority:   formatPriority(entry.Priority),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func formatPriority(p float64) string {
	p = max(0, min(1, p))
	return strconv.FormatFloat(p, 'f', 1, 64)
}
