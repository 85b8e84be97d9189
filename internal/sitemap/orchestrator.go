package sitemap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"partscatalog/sitemap/internal/catalog"
	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/repository"
	"partscatalog/sitemap/internal/slug"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	IndexDocument      = "sitemap.xml"
	MainDocument       = "sitemap-main.xml"
	CategoriesDocument = "sitemap-categories.xml"
	SampleDocument     = "sitemap-sample.xml"

	mainPrefix       = "sitemap-main"
	categoriesPrefix = "sitemap-categories"
	partsPrefix      = "sitemap-parts"
)

const (
	PriorityManufacturer = 0.8
	PriorityCategory     = 0.7
	PrioritySubcategory  = 0.6
	PriorityItem         = 0.5
)

const (
	sectionStatic   = "static"
	sectionCategory = "category"
	sectionItem     = "item"
)

// IsReserved reports whether a document name is served by a fixed route and
// therefore never resolved as a manufacturer or category slug.
func IsReserved(name string) bool {
	switch name {
	case IndexDocument, MainDocument, CategoriesDocument, SampleDocument:
		return true
	}
	return false
}

type StaticPage struct {
	Path       string            `mapstructure:"path"`
	ChangeFreq domain.ChangeFreq `mapstructure:"changefreq"`
	Priority   float64           `mapstructure:"priority"`
}

func DefaultStaticPages() []StaticPage {
	return []StaticPage{
		{Path: "/", ChangeFreq: domain.ChangeFreqDaily, Priority: 1.0},
		{Path: "/search", ChangeFreq: domain.ChangeFreqWeekly, Priority: 0.8},
		{Path: "/categories", ChangeFreq: domain.ChangeFreqWeekly, Priority: 0.8},
		{Path: "/manufacturers", ChangeFreq: domain.ChangeFreqWeekly, Priority: 0.8},
		{Path: "/about", ChangeFreq: domain.ChangeFreqMonthly, Priority: 0.5},
		{Path: "/contact", ChangeFreq: domain.ChangeFreqMonthly, Priority: 0.5},
	}
}

// ProgressRecorder persists run reports.
type ProgressRecorder interface {
	SaveRun(ctx context.Context, report *domain.RunReport) error
}

type Options struct {
	BaseURL       string
	ShardCapacity int
	SampleSize    int
	StaticPages   []StaticPage
	// ProgressInterval is the number of item batches between progress saves.
	ProgressInterval int
	Now              func() time.Time
}

// Orchestrator drives sitemap generation. Batch runs, on-demand renders and
// sampled renders all go through the same section builders, so a catalog row
// maps to the same entry in every mode.
type Orchestrator struct {
	repo      repository.CatalogRepository
	paginator *catalog.Paginator
	resolver  *catalog.Resolver
	registry  RegistryFactory
	inProcess bool
	progress  ProgressRecorder
	urls      URLBuilder
	opts      Options
}

// NewOrchestrator wires an orchestrator. registry and progress may be nil, in
// which case an in-process registry is used and progress is not recorded.
func NewOrchestrator(
	repo repository.CatalogRepository,
	paginator *catalog.Paginator,
	resolver *catalog.Resolver,
	registry RegistryFactory,
	progress ProgressRecorder,
	opts Options,
) *Orchestrator {
	if opts.ShardCapacity <= 0 || opts.ShardCapacity > domain.MaxShardEntries {
		opts.ShardCapacity = domain.MaxShardEntries
	}
	if opts.StaticPages == nil {
		opts.StaticPages = DefaultStaticPages()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	inProcess := registry == nil
	if inProcess {
		registry = NewLocalRegistry
	}

	return &Orchestrator{
		repo:      repo,
		paginator: paginator,
		resolver:  resolver,
		registry:  registry,
		inProcess: inProcess,
		progress:  progress,
		urls:      NewURLBuilder(opts.BaseURL),
		opts:      opts,
	}
}

func (o *Orchestrator) URLs() URLBuilder {
	return o.urls
}

// Run performs a full batch run: every sealed shard is written to sink as
// soon as it is sealed, followed by the index document. A data-source error
// in any phase fails the whole run; sinks implementing Committer are only
// committed once the index is written and are aborted otherwise.
func (o *Orchestrator) Run(ctx context.Context, sink Sink) (*domain.RunReport, error) {
	r := o.newRun(domain.RunModeBatch, o.registry)
	r.sink = sink
	defer r.release()

	r.log.Infof("🚀 Starting sitemap run (shard capacity %d, batch size %d)", o.opts.ShardCapacity, o.paginator.BatchSize())
	if o.inProcess {
		r.log.Warn("⚠️ Emitted locations are tracked in process memory for the whole run; enable redis to bound memory on large catalogs")
	}

	err := r.execute(ctx)
	if err != nil {
		if c, ok := sink.(Committer); ok {
			if abortErr := c.Abort(context.WithoutCancel(ctx)); abortErr != nil {
				r.log.Warnf("⚠️ Failed to discard staged documents: %v", abortErr)
			}
		}
	}
	r.finish(ctx, err)
	if err != nil {
		r.log.Errorf("❌ Sitemap run failed in %s: %v", r.phase, err)
		return r.report, err
	}

	r.log.Infof("✅ Sitemap run finished: %d entries in %d shards, %d rows visited, %d collisions",
		r.report.Entries, len(r.report.Shards), r.report.RowsVisited, r.report.Collisions)
	return r.report, nil
}

// RenderStatic writes the static pages shard.
func (o *Orchestrator) RenderStatic(ctx context.Context, w io.Writer) error {
	return o.renderSingle(ctx, w, domain.RunModeOnDemand, MainDocument, func(r *run, p *Partitioner) error {
		return r.fill(ctx, p, sectionStatic, o.staticEntries(r.now))
	})
}

// RenderCategories writes the catalog-wide category shard.
func (o *Orchestrator) RenderCategories(ctx context.Context, w io.Writer) error {
	return o.renderSingle(ctx, w, domain.RunModeOnDemand, CategoriesDocument, func(r *run, p *Partitioner) error {
		idx, err := catalog.BuildIndex(ctx, o.paginator, domain.Filter{})
		if err != nil {
			return err
		}
		return r.fill(ctx, p, sectionCategory, o.categoryEntries(idx, r.now))
	})
}

// RenderManufacturer writes the category listing of one manufacturer,
// addressed by its slug. domain.ErrNotFound is returned when no manufacturer
// has that slug.
func (o *Orchestrator) RenderManufacturer(ctx context.Context, w io.Writer, manufacturerSlug string) error {
	name, err := o.resolver.Manufacturer(ctx, manufacturerSlug)
	if err != nil {
		return err
	}

	return o.renderSingle(ctx, w, domain.RunModeOnDemand, manufacturerSlug+".xml", func(r *run, p *Partitioner) error {
		idx, err := catalog.BuildIndex(ctx, o.paginator, domain.Filter{Manufacturer: name})
		if err != nil {
			return err
		}
		return r.fill(ctx, p, sectionCategory, o.manufacturerEntries(name, idx, r.now))
	})
}

// RenderCategoryPage writes page n (1-based) of the items of one category,
// addressed by its slug. Each page holds at most one shard worth of rows.
// A page past the end of the category is reported as domain.ErrNotFound.
func (o *Orchestrator) RenderCategoryPage(ctx context.Context, w io.Writer, categorySlug string, page int) error {
	name, err := o.resolver.Category(ctx, categorySlug)
	if err != nil {
		return err
	}
	if page < 1 {
		page = 1
	}

	return o.renderSingle(ctx, w, domain.RunModeOnDemand, categorySlug+".xml", func(r *run, p *Partitioner) error {
		offset := (page - 1) * o.opts.ShardCapacity
		visited, err := r.sweepItems(ctx, p, domain.Filter{Category: name}, offset, o.opts.ShardCapacity)
		if err != nil {
			return err
		}
		if visited == 0 && page > 1 {
			return fmt.Errorf("category %q page %d: %w", categorySlug, page, domain.ErrNotFound)
		}
		return nil
	})
}

// RenderSample writes a single best-effort shard: static pages, categories
// and the first SampleSize items by name. It never walks the full catalog.
func (o *Orchestrator) RenderSample(ctx context.Context, w io.Writer) error {
	return o.renderSingle(ctx, w, domain.RunModeSample, SampleDocument, func(r *run, p *Partitioner) error {
		if err := r.fill(ctx, p, sectionStatic, o.staticEntries(r.now)); err != nil {
			return err
		}

		idx, err := catalog.BuildIndex(ctx, o.paginator, domain.Filter{})
		if err != nil {
			return err
		}
		if err := r.fill(ctx, p, sectionCategory, o.categoryEntries(idx, r.now)); err != nil {
			return err
		}

		if r.first != nil {
			return nil
		}
		room := p.Capacity() - p.Pending()
		limit := o.opts.SampleSize
		if limit <= 0 || limit > room {
			limit = room
		}
		if limit <= 0 {
			return nil
		}
		_, err = r.sweepItems(ctx, p, domain.Filter{}, 0, limit)
		return err
	})
}

// RenderOnDemandIndex writes the index served by the request handler. It
// points at the fixed documents, one document per manufacturer and one per
// page of every category. Manufacturers are listed first and win a slug shared
// with a category; among categories the first by name wins.
func (o *Orchestrator) RenderOnDemandIndex(ctx context.Context, w io.Writer) error {
	start := time.Now()
	now := o.opts.Now()
	logger := log.WithField("mode", domain.RunModeOnDemand)

	refs := []domain.ShardRef{
		{Loc: o.urls.Document(MainDocument), LastModified: now},
		{Loc: o.urls.Document(CategoriesDocument), LastModified: now},
	}
	claimed := make(map[string]string)

	manufacturers, err := o.repo.Manufacturers(ctx)
	if err != nil {
		observe(domain.RunModeOnDemand, start, err)
		return fmt.Errorf("failed to list manufacturers: %w", err)
	}
	for _, name := range manufacturers {
		s := slug.Slugify(name)
		if !o.claimSlug(claimed, s, name, logger) {
			continue
		}
		refs = append(refs, domain.ShardRef{Loc: o.urls.Document(s + ".xml"), LastModified: now})
	}

	counts, err := o.repo.CountByCategory(ctx, domain.Filter{})
	if err != nil {
		observe(domain.RunModeOnDemand, start, err)
		return fmt.Errorf("failed to count categories: %w", err)
	}
	for _, c := range counts {
		s := slug.Slugify(c.Category)
		if !o.claimSlug(claimed, s, c.Category, logger) {
			continue
		}
		pages := max(1, (c.Items+o.opts.ShardCapacity-1)/o.opts.ShardCapacity)
		for n := 1; n <= pages; n++ {
			refs = append(refs, domain.ShardRef{Loc: o.urls.DocumentPage(s+".xml", n), LastModified: now})
		}
	}

	if len(refs) > domain.MaxShardEntries {
		logger.Warnf("⚠️ On-demand index truncated from %d to %d references", len(refs), domain.MaxShardEntries)
		refs = refs[:domain.MaxShardEntries]
	}

	err = RenderIndex(w, refs)
	observe(domain.RunModeOnDemand, start, err)
	return err
}

func (o *Orchestrator) claimSlug(claimed map[string]string, s, name string, logger *log.Entry) bool {
	if strings.Trim(s, "-") == "" || IsReserved(s+".xml") {
		logger.Debugf("Skipping %q: slug %q is not routable", name, s)
		return false
	}
	if owner, ok := claimed[s]; ok {
		logger.Warnf("⚠️ %q shares slug %q with %q and is not reachable on demand", name, s, owner)
		return false
	}
	claimed[s] = name
	return true
}

func (o *Orchestrator) staticEntries(now time.Time) []domain.SitemapEntry {
	entries := make([]domain.SitemapEntry, 0, len(o.opts.StaticPages))
	for _, page := range o.opts.StaticPages {
		entries = append(entries, domain.SitemapEntry{
			Loc:          o.urls.Page(page.Path),
			LastModified: now,
			ChangeFreq:   page.ChangeFreq,
			Priority:     page.Priority,
		})
	}
	return entries
}

func (o *Orchestrator) categoryEntries(idx *domain.CategoryIndex, now time.Time) []domain.SitemapEntry {
	entries := make([]domain.SitemapEntry, 0, idx.EntryCount())
	for _, node := range idx.Nodes {
		entries = append(entries, weekly(o.urls.Category(node.Name), PriorityCategory, now))
		for _, sub := range node.Subcategories {
			entries = append(entries, weekly(o.urls.Subcategory(node.Name, sub), PrioritySubcategory, now))
		}
	}
	return entries
}

func (o *Orchestrator) manufacturerEntries(manufacturer string, idx *domain.CategoryIndex, now time.Time) []domain.SitemapEntry {
	entries := make([]domain.SitemapEntry, 0, idx.EntryCount()+1)
	entries = append(entries, weekly(o.urls.Manufacturer(manufacturer), PriorityManufacturer, now))
	for _, node := range idx.Nodes {
		entries = append(entries, weekly(o.urls.ManufacturerCategory(manufacturer, node.Name), PriorityCategory, now))
		for _, sub := range node.Subcategories {
			entries = append(entries, weekly(o.urls.ManufacturerSubcategory(manufacturer, node.Name, sub), PrioritySubcategory, now))
		}
	}
	return entries
}

func (o *Orchestrator) itemEntry(item domain.CatalogItem, now time.Time) domain.SitemapEntry {
	return domain.SitemapEntry{
		Loc:          o.urls.Item(item),
		LastModified: now,
		ChangeFreq:   domain.ChangeFreqMonthly,
		Priority:     PriorityItem,
	}
}

func weekly(loc string, priority float64, now time.Time) domain.SitemapEntry {
	return domain.SitemapEntry{
		Loc:          loc,
		LastModified: now,
		ChangeFreq:   domain.ChangeFreqWeekly,
		Priority:     priority,
	}
}

// renderSingle runs build against a one-shard partitioner and renders the
// result to w. Nothing is written to w unless build succeeds.
func (o *Orchestrator) renderSingle(
	ctx context.Context,
	w io.Writer,
	mode domain.RunMode,
	name string,
	build func(r *run, p *Partitioner) error,
) error {
	start := time.Now()
	r := o.newRun(mode, NewLocalRegistry)
	p := NewPartitioner(o.opts.ShardCapacity, func(int) string { return name })
	r.single = true

	if err := build(r, p); err != nil {
		observe(mode, start, err)
		return err
	}

	shard := r.first
	if shard == nil {
		shard = p.FlushRemainder()
	}
	if shard == nil {
		shard = &domain.SitemapShard{Name: name}
	}

	err := RenderURLSet(w, shard)
	observe(mode, start, err)
	return err
}

func observe(mode domain.RunMode, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RunDuration.WithLabelValues(mode.String(), outcome).Observe(time.Since(start).Seconds())
}

func (o *Orchestrator) newRun(mode domain.RunMode, factory RegistryFactory) *run {
	id := uuid.NewString()
	now := o.opts.Now()
	return &run{
		o:        o,
		now:      now,
		start:    time.Now(),
		registry: factory(id),
		phase:    PhaseInit,
		report: &domain.RunReport{
			ID:        id,
			Mode:      mode,
			Phase:     PhaseInit.String(),
			StartedAt: now,
		},
		log: log.WithFields(log.Fields{"run": id, "mode": mode}),
	}
}

// run is the state of one orchestrator invocation.
type run struct {
	o        *Orchestrator
	now      time.Time
	start    time.Time
	registry Registry
	sink     Sink
	phase    Phase
	report   *domain.RunReport
	refs     []domain.ShardRef
	batches  int
	log      *log.Entry

	// single runs keep the first sealed shard and stop accepting entries.
	single bool
	first  *domain.SitemapShard
}

func (r *run) execute(ctx context.Context) error {
	o := r.o

	if err := r.enter(ctx, PhaseStaticPages); err != nil {
		return err
	}
	if err := r.emitSection(ctx, sectionStatic, SectionNamer(mainPrefix), o.staticEntries(r.now)); err != nil {
		return err
	}

	if err := r.enter(ctx, PhaseCategorySweep); err != nil {
		return err
	}
	idx, err := catalog.BuildIndex(ctx, o.paginator, domain.Filter{})
	if err != nil {
		return err
	}
	r.log.Infof("🗂️ Category index built: %d categories, %d entries", len(idx.Nodes), idx.EntryCount())
	if err := r.emitSection(ctx, sectionCategory, SectionNamer(categoriesPrefix), o.categoryEntries(idx, r.now)); err != nil {
		return err
	}

	if err := r.enter(ctx, PhaseItemSweep); err != nil {
		return err
	}
	items := NewPartitioner(o.opts.ShardCapacity, NumberedNamer(partsPrefix))
	if _, err := r.sweepItems(ctx, items, domain.Filter{}, 0, 0); err != nil {
		return err
	}

	if err := r.enter(ctx, PhaseShardSeal); err != nil {
		return err
	}
	if shard := items.FlushRemainder(); shard != nil {
		if err := r.writeShard(ctx, sectionItem, shard); err != nil {
			return err
		}
	}

	if err := r.enter(ctx, PhaseIndexAssemble); err != nil {
		return err
	}
	refs := r.refs
	if err := r.sink.WriteDocument(ctx, IndexDocument, func(w io.Writer) error {
		return RenderIndex(w, refs)
	}); err != nil {
		return err
	}
	if c, ok := r.sink.(Committer); ok {
		if err := c.Commit(ctx); err != nil {
			return err
		}
	}
	r.report.IndexURL = o.urls.Document(IndexDocument)
	r.log.Infof("📚 Index written with %d shard references", len(refs))

	return r.enter(ctx, PhaseDone)
}

// enter moves the run to phase and records progress for batch runs.
func (r *run) enter(ctx context.Context, phase Phase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.log.Debugf("Phase %s -> %s", r.phase, phase)
	r.phase = phase
	r.report.Phase = phase.String()
	r.saveProgress(ctx)
	return nil
}

// emitSection partitions a fixed list of entries and writes every shard.
func (r *run) emitSection(ctx context.Context, section string, namer ShardNamer, entries []domain.SitemapEntry) error {
	p := NewPartitioner(r.o.opts.ShardCapacity, namer)
	if err := r.fill(ctx, p, section, entries); err != nil {
		return err
	}
	if shard := p.FlushRemainder(); shard != nil {
		return r.writeShard(ctx, section, shard)
	}
	return nil
}

// fill claims entries and feeds the accepted ones to p, writing every shard
// that fills up.
func (r *run) fill(ctx context.Context, p *Partitioner, section string, entries []domain.SitemapEntry) error {
	accepted, err := r.claim(ctx, entries)
	if err != nil {
		return err
	}
	for _, entry := range accepted {
		if r.single && r.first != nil {
			r.log.Warnf("⚠️ %s shard is full, dropping remaining %s entries", r.first.Name, section)
			return nil
		}
		if shard := p.Add(entry); shard != nil {
			if err := r.writeShard(ctx, section, shard); err != nil {
				return err
			}
		}
		r.report.Entries++
		EntriesEmitted.WithLabelValues(section).Inc()
	}
	return nil
}

// sweepItems pages through the catalog under filter and feeds one entry per
// named row to p. Rows with a blank name produce no entry.
func (r *run) sweepItems(ctx context.Context, p *Partitioner, filter domain.Filter, offset, maxRows int) (int, error) {
	visited, err := r.o.paginator.Sweep(ctx, filter, offset, maxRows, func(batch *domain.CatalogBatch) error {
		entries := make([]domain.SitemapEntry, 0, len(batch.Items))
		for _, item := range batch.Items {
			if strings.TrimSpace(item.Name) == "" {
				continue
			}
			entries = append(entries, r.o.itemEntry(item, r.now))
		}

		if err := r.fill(ctx, p, sectionItem, entries); err != nil {
			return err
		}

		r.report.RowsVisited += len(batch.Items)
		r.batches++
		if r.batches%r.o.opts.ProgressInterval == 0 {
			r.log.Infof("🔄 Swept %d/%d catalog rows", batch.Offset+len(batch.Items), batch.Total)
			r.saveProgress(ctx)
		}
		return nil
	})
	if err != nil {
		return visited, fmt.Errorf("item sweep aborted after %d rows: %w", visited, err)
	}
	return visited, nil
}

// claim drops entries whose location was already emitted in this run.
func (r *run) claim(ctx context.Context, entries []domain.SitemapEntry) ([]domain.SitemapEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	locs := make([]string, len(entries))
	for i, e := range entries {
		locs[i] = e.Loc
	}

	claimed, err := r.registry.Claim(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("failed to claim locations: %w", err)
	}

	accepted := make([]domain.SitemapEntry, 0, len(entries))
	for i, ok := range claimed {
		if !ok {
			r.report.Collisions++
			SlugCollisions.Inc()
			r.log.Warnf("⚠️ Duplicate location %s, keeping the first entry", locs[i])
			continue
		}
		accepted = append(accepted, entries[i])
	}
	return accepted, nil
}

func (r *run) writeShard(ctx context.Context, section string, shard *domain.SitemapShard) error {
	ShardsSealed.WithLabelValues(section).Inc()

	if r.single {
		if r.first == nil {
			r.first = shard
		}
		return nil
	}

	if err := r.sink.WriteDocument(ctx, shard.Name, func(w io.Writer) error {
		return RenderURLSet(w, shard)
	}); err != nil {
		return err
	}

	r.refs = append(r.refs, domain.ShardRef{
		Loc:          r.o.urls.Document(shard.Name),
		LastModified: r.now,
	})
	r.report.Shards = append(r.report.Shards, shard.Name)
	r.log.Infof("📄 Sealed %s with %d entries", shard.Name, shard.Len())
	return nil
}

func (r *run) finish(ctx context.Context, err error) {
	r.report.FinishedAt = r.o.opts.Now()
	if err != nil {
		r.phase = PhaseFailed
		r.report.Phase = PhaseFailed.String()
		r.report.Error = err.Error()
	}
	observe(r.report.Mode, r.start, err)
	r.saveProgress(context.WithoutCancel(ctx))
}

func (r *run) saveProgress(ctx context.Context) {
	if r.o.progress == nil || r.report.Mode != domain.RunModeBatch {
		return
	}
	if err := r.o.progress.SaveRun(ctx, r.report); err != nil {
		r.log.Warnf("⚠️ Failed to save run progress: %v", err)
	}
}

func (r *run) release() {
	if err := r.registry.Release(context.Background()); err != nil {
		r.log.Warnf("⚠️ Failed to release location registry: %v", err)
	}
}
