package sitemap

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"partscatalog/sitemap/internal/domain"

	"github.com/spf13/afero"
)

// VerifyReport summarises a published sitemap tree.
type VerifyReport struct {
	Shards   int
	Entries  int
	Problems []string
}

func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}

// Verify reads dir/sitemap.xml and every shard it references, checking that
// each shard exists, parses, stays within the URL cap and that no location
// appears twice. Structural problems are collected in the report; only an
// unreadable index is returned as an error.
func Verify(fs afero.Fs, dir string) (*VerifyReport, error) {
	f, err := fs.Open(filepath.Join(dir, IndexDocument))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	refs, err := ParseIndex(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}

	report := &VerifyReport{}
	if len(refs) > domain.MaxShardEntries {
		report.Problems = append(report.Problems, fmt.Sprintf("index references %d shards, limit is %d", len(refs), domain.MaxShardEntries))
	}

	seen := make(map[string]string)
	for _, ref := range refs {
		u, err := url.Parse(ref.Loc)
		if err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("invalid shard location %q: %v", ref.Loc, err))
			continue
		}
		name := path.Base(u.Path)

		entries, err := readShard(fs, filepath.Join(dir, name))
		if err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		report.Shards++
		report.Entries += len(entries)
		if len(entries) > domain.MaxShardEntries {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: %d entries, limit is %d", name, len(entries), domain.MaxShardEntries))
		}
		for _, e := range entries {
			if e.Loc == "" {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: entry without location", name))
				continue
			}
			if first, ok := seen[e.Loc]; ok {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: %s already listed in %s", name, e.Loc, first))
				continue
			}
			seen[e.Loc] = name
		}
	}

	return report, nil
}

func readShard(fs afero.Fs, name string) ([]domain.SitemapEntry, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseURLSet(f)
}
