package sitemap

import (
	"fmt"

	"partscatalog/sitemap/internal/domain"
)

// ShardNamer names the n-th (1-based) shard of a section.
type ShardNamer func(seq int) string

// SectionNamer names the first shard "<prefix>.xml" and later ones
// "<prefix>-<n>.xml".
func SectionNamer(prefix string) ShardNamer {
	return func(seq int) string {
		if seq == 1 {
			return prefix + ".xml"
		}
		return fmt.Sprintf("%s-%d.xml", prefix, seq)
	}
}

// NumberedNamer always numbers shards: "<prefix>-<n>.xml".
func NumberedNamer(prefix string) ShardNamer {
	return func(seq int) string {
		return fmt.Sprintf("%s-%d.xml", prefix, seq)
	}
}

// Partitioner accumulates entries into shards of a fixed capacity. Boundaries
// are positional: the N-th accepted entry always lands in shard
// ceil(N/capacity), and entries keep their arrival order.
type Partitioner struct {
	capacity int
	namer    ShardNamer
	current  []domain.SitemapEntry
	seq      int
	accepted int
}

// NewPartitioner clamps capacity to [1, domain.MaxShardEntries].
func NewPartitioner(capacity int, namer ShardNamer) *Partitioner {
	if capacity <= 0 || capacity > domain.MaxShardEntries {
		capacity = domain.MaxShardEntries
	}
	return &Partitioner{
		capacity: capacity,
		namer:    namer,
	}
}

func (p *Partitioner) Capacity() int {
	return p.capacity
}

// Accept appends entry to the in-progress shard. The caller must drain a full
// shard with FlushIfFull before accepting more.
func (p *Partitioner) Accept(entry domain.SitemapEntry) {
	if len(p.current) >= p.capacity {
		panic("sitemap: Accept on a full shard")
	}
	if p.current == nil {
		p.current = make([]domain.SitemapEntry, 0, min(p.capacity, 1024))
	}
	p.current = append(p.current, entry)
	p.accepted++
}

// Add accepts entry and returns the shard it sealed, if any.
func (p *Partitioner) Add(entry domain.SitemapEntry) *domain.SitemapShard {
	p.Accept(entry)
	return p.FlushIfFull()
}

// FlushIfFull seals and returns the in-progress shard once it holds capacity
// entries.
func (p *Partitioner) FlushIfFull() *domain.SitemapShard {
	if len(p.current) < p.capacity {
		return nil
	}
	return p.seal()
}

// FlushRemainder seals whatever is left at end of input. It returns nil when
// the in-progress shard is empty.
func (p *Partitioner) FlushRemainder() *domain.SitemapShard {
	if len(p.current) == 0 {
		return nil
	}
	return p.seal()
}

// Pending is the number of entries in the unsealed shard.
func (p *Partitioner) Pending() int {
	return len(p.current)
}

// Sealed is the number of shards handed out so far.
func (p *Partitioner) Sealed() int {
	return p.seq
}

func (p *Partitioner) Accepted() int {
	return p.accepted
}

func (p *Partitioner) seal() *domain.SitemapShard {
	p.seq++
	shard := &domain.SitemapShard{
		Name:    p.namer(p.seq),
		Entries: p.current,
	}
	p.current = nil
	return shard
}
