package domain

import "time"

// MaxShardEntries is the search-engine ceiling on URLs per sitemap file.
const MaxShardEntries = 50000

type ChangeFreq string

func (c ChangeFreq) String() string {
	return string(c)
}

const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// SitemapEntry is one <url> element. Values are never mutated after creation.
type SitemapEntry struct {
	Loc          string     `json:"loc"`
	LastModified time.Time  `json:"lastmod"`
	ChangeFreq   ChangeFreq `json:"changefreq"`
	Priority     float64    `json:"priority"` // 0.0 - 1.0
}

// SitemapShard is a sealed, ordered group of entries written as one file.
type SitemapShard struct {
	Name    string         `json:"name"` // File name, e.g. "sitemap-parts-3.xml"
	Entries []SitemapEntry `json:"entries"`
}

func (s *SitemapShard) Len() int {
	return len(s.Entries)
}

// ShardRef points at a rendered shard from the index document.
type ShardRef struct {
	Loc          string    `json:"loc"`
	LastModified time.Time `json:"lastmod"`
}

type SitemapIndex struct {
	Refs []ShardRef `json:"refs"`
}
