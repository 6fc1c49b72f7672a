package reconcile

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"setkeeper/internal/keys"
	"setkeeper/internal/paging"
	"setkeeper/internal/remote"
	"setkeeper/internal/retry"
	"setkeeper/internal/store"
)

// GroupBy selects a key-extraction mode for a run.
type GroupBy string

const (
	GroupByDate   GroupBy = "date"
	GroupByOrder  GroupBy = "order"
	GroupByFamily GroupBy = "family"
)

// ParseGroupBy validates a user-supplied mode name.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case GroupByDate, GroupByOrder, GroupByFamily:
		return GroupBy(s), nil
	default:
		return "", fmt.Errorf("unknown group-by mode %q (want date, order or family)", s)
	}
}

// EngineConfig wires an Engine. Service and Policy are required; everything
// else has working zero values.
type EngineConfig struct {
	Service    remote.Service
	Log        *zap.Logger
	Policy     retry.Policy
	Breaker    bool
	PageSize   int
	Predicates keys.Predicates
	Patterns   keys.MatcherConfig
	Cache      *store.Cache
	DryRun     bool
}

// Engine drives end-to-end reconciliation runs. Execution is strictly
// sequential: one remote call in flight at a time, items processed in the
// order the service returned them.
type Engine struct {
	svc       remote.Service
	log       *zap.Logger
	retrier   *retry.Retrier
	itemPager *paging.Pager[remote.Item]
	members   *Memberships
	extract   *keys.Extractor
	match     *keys.Matcher
	cache     *store.Cache
	pageSize  int
	dryRun    bool
}

// NewEngine builds an Engine. Pattern compilation failures surface here,
// before any remote call.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	matcher, err := keys.NewMatcher(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	opts := []retry.Option{retry.WithClassifier(remote.IsTransient)}
	if cfg.Breaker {
		opts = append(opts, retry.WithBreaker("remote"))
	}
	retrier := retry.New(cfg.Policy, log, opts...)

	return &Engine{
		svc:       cfg.Service,
		log:       log,
		retrier:   retrier,
		itemPager: paging.New[remote.Item](cfg.PageSize, retrier, log),
		members:   NewMemberships(cfg.Service, retrier, log),
		extract:   keys.NewExtractor(cfg.Predicates),
		match:     matcher,
		cache:     cfg.Cache,
		pageSize:  cfg.PageSize,
		dryRun:    cfg.DryRun,
	}, nil
}

// RunRequest scopes one reconciliation run.
type RunRequest struct {
	Filter remote.SearchFilter
	// GroupBy lists the key-extraction modes to apply; an item may yield
	// one key per mode.
	GroupBy []GroupBy
	// MinUniqueSeq applies to date groups only: a date qualifies for a
	// collection only when at least this many distinct capture-sequence
	// values were taken that day. Zero disables the threshold.
	MinUniqueSeq int
	// MergeDescriptions refreshes the managed description block on every
	// collection the run touches.
	MergeDescriptions bool
}

// Run executes one reconciliation pass: search, derive keys, resolve
// collections, ensure memberships, optionally refresh description blocks.
// Item-level failures are isolated; the summary is logged and returned even
// when some items failed.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunSummary, error) {
	sum := newSummary()
	e.log.Info("run starting",
		zap.String("run_id", sum.RunID),
		zap.Any("group_by", req.GroupBy),
		zap.Bool("dry_run", e.dryRun))

	// Date sets may carry a trailing place name after the bare key; the
	// prefix normalizer resolves the derived key to such a set instead of
	// creating a duplicate.
	resolver := e.newResolver(WithNormalizer(PrefixNormalizer(keys.DateKeyPrefix)))
	if err := e.seedResolver(ctx, resolver); err != nil {
		sum.finish()
		return sum, fmt.Errorf("seed collection cache: %w", err)
	}

	items, err := e.searchAll(ctx, req.Filter)
	if err != nil {
		sum.finish()
		return sum, fmt.Errorf("search items: %w", err)
	}
	sum.Processed = len(items)

	groups := e.buildGroups(items, req, sum)

	titles := make([]string, 0, len(groups))
	for title := range groups {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		e.reconcileGroup(ctx, resolver, title, groups[title], req, sum)
	}

	e.writeBackCache(ctx, resolver)

	sum.finish()
	e.log.Info("run complete", zap.String("summary", sum.String()))
	return sum, nil
}

func (e *Engine) newResolver(opts ...ResolverOption) *Resolver {
	return NewResolver(e.svc, e.retrier, e.pageSize, e.log, opts...)
}

// seedResolver primes the resolver from the on-disk cache (if configured)
// and then from a full live listing. Live data wins.
func (e *Engine) seedResolver(ctx context.Context, r *Resolver) error {
	if e.cache != nil {
		entries, err := e.cache.All(ctx)
		if err != nil {
			e.log.Warn("collection cache unreadable, continuing without", zap.Error(err))
		}
		for _, en := range entries {
			r.SeedEntry(remote.Collection{ID: en.ID, Title: en.Title})
		}
	}
	return r.Seed(ctx)
}

func (e *Engine) writeBackCache(ctx context.Context, r *Resolver) {
	if e.cache == nil {
		return
	}
	known := r.Known()
	entries := make([]store.Entry, 0, len(known))
	for _, c := range known {
		if IsNoop(c) {
			continue
		}
		entries = append(entries, store.Entry{ID: c.ID, Title: c.Title})
	}
	if err := e.cache.PutAll(ctx, entries); err != nil {
		e.log.Warn("collection cache write-back failed", zap.Error(err))
	}
}

func (e *Engine) searchAll(ctx context.Context, filter remote.SearchFilter) ([]remote.Item, error) {
	fetch := func(ctx context.Context, page, perPage int) ([]remote.Item, remote.PageInfo, error) {
		return e.svc.SearchItems(ctx, filter, page, perPage)
	}
	return paging.Collect(ctx, e.itemPager, "items.search", fetch)
}

// buildGroups derives grouping keys for every item. Items yielding no key in
// any requested mode are tallied as skipped.
func (e *Engine) buildGroups(items []remote.Item, req RunRequest, sum *RunSummary) map[string][]remote.Item {
	groups := make(map[string][]remote.Item)
	keyed := make(map[string]bool, len(items))

	add := func(title string, item remote.Item) {
		groups[title] = append(groups[title], item)
		keyed[item.ID] = true
	}

	for _, mode := range req.GroupBy {
		switch mode {
		case GroupByDate:
			e.groupByDate(items, req.MinUniqueSeq, add)
		case GroupByOrder:
			for _, it := range items {
				if key, ok := e.extract.OrderKey(it); ok {
					add(key, it)
				}
			}
		case GroupByFamily:
			for _, it := range items {
				if key, ok := e.extract.FamilyKey(it); ok {
					add(key, it)
				}
			}
		}
	}

	for _, it := range items {
		if !keyed[it.ID] {
			sum.Skipped++
			e.log.Debug("no grouping key for item", zap.String("item", it.ID), zap.String("title", it.Title))
		}
	}
	return groups
}

// groupByDate groups items by the B0 date key. With a threshold, only dates
// carrying at least minUniqueSeq distinct sequence values qualify, and only
// sequence-tagged items participate.
func (e *Engine) groupByDate(items []remote.Item, minUniqueSeq int, add func(string, remote.Item)) {
	if minUniqueSeq <= 0 {
		for _, it := range items {
			if key, ok := e.extract.DateKey(it); ok {
				add(key, it)
			}
		}
		return
	}

	type dated struct {
		item remote.Item
		key  string
	}
	byDate := make(map[string][]dated)
	uniqueSeqs := make(map[string]map[int]struct{})

	for _, it := range items {
		key, seq, ok := e.extract.DateSequence(it)
		if !ok {
			continue
		}
		byDate[key] = append(byDate[key], dated{item: it, key: key})
		if uniqueSeqs[key] == nil {
			uniqueSeqs[key] = make(map[int]struct{})
		}
		uniqueSeqs[key][seq] = struct{}{}
	}

	for key, group := range byDate {
		if len(uniqueSeqs[key]) < minUniqueSeq {
			e.log.Debug("date below unique-sequence threshold",
				zap.String("key", key),
				zap.Int("unique", len(uniqueSeqs[key])),
				zap.Int("threshold", minUniqueSeq))
			continue
		}
		for _, d := range group {
			add(key, d.item)
		}
	}
}

// reconcileGroup makes one collection match one derived group. The first
// item in page order seeds a newly created collection and is excluded from
// the subsequent add loop: it is implicitly a member already, and a
// duplicate add would burn a retry cycle for nothing.
func (e *Engine) reconcileGroup(ctx context.Context, resolver *Resolver, title string, group []remote.Item, req RunRequest, sum *RunSummary) {
	if len(group) == 0 {
		return
	}
	primary := group[0]

	if e.dryRun {
		e.dryRunGroup(resolver, title, group, sum)
		return
	}

	col, created := resolver.Resolve(ctx, title, primary.ID)
	if IsNoop(col) {
		sum.Failed += len(group)
		return
	}

	touched := created
	if created {
		sum.CollectionsCreated++
	}

	rest := group
	if created {
		rest = group[1:]
	}
	for _, it := range rest {
		outcome, _ := e.members.EnsureMember(ctx, it.ID, col)
		switch outcome {
		case OutcomeAdded:
			sum.Added++
			touched = true
		case OutcomeAlreadyMember:
			sum.AlreadyMembers++
		case OutcomeFailed:
			sum.Failed++
		}
	}

	if req.MergeDescriptions {
		e.mergeCollectionBlock(ctx, col, title, len(group), sum)
	}

	if touched {
		sum.CollectionsUpdated++
	}
}

func (e *Engine) dryRunGroup(resolver *Resolver, title string, group []remote.Item, sum *RunSummary) {
	if _, ok := resolver.Lookup(title); !ok {
		sum.CollectionsCreated++
		sum.Added += len(group) - 1 // primary would seed the create
		sum.CollectionsUpdated++
		e.log.Info("dry-run: would create collection",
			zap.String("title", title),
			zap.Int("items", len(group)))
		return
	}
	sum.Added += len(group)
	sum.CollectionsUpdated++
	e.log.Info("dry-run: would add items to collection",
		zap.String("title", title),
		zap.Int("items", len(group)))
}
