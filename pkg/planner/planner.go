// Package planner selects the cheapest usable index for a query predicate and
// materializes the byte ranges the storage layer must scan. Selection never
// fails: the full-scan strategy is always a candidate of last resort.
package planner

import (
	"fmt"
	"math"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/spatialkv/zindex/internal/core/observability"
	"github.com/spatialkv/zindex/pkg/filter"
	"github.com/spatialkv/zindex/pkg/index"
)

// Stats supplies optional attribute cardinality estimates.
type Stats interface {
	// Cardinality returns the estimated number of features with
	// attr = value, ok=false when unknown.
	Cardinality(attr, value string) (float64, bool)
}

const (
	idCost          = 0.001
	attrDefaultCost = 10.0
	// imprecisePenalty inflates the cost of curve strategies whose extracted
	// bounds over-approximate the predicate, since they imply a larger
	// residual filter.
	imprecisePenalty = 2.0
	// noTimePenalty inflates the pure-spatial index when the predicate also
	// has temporal bounds it cannot use.
	noTimePenalty = 2.0
)

// Strategy is one candidate way to answer a query: the index, the
// sub-predicate it satisfies (primary), the residual re-checked after
// scanning (secondary), and a cost where lower is better. +Inf marks a
// last-resort full scan. Built per query, never persisted.
type Strategy struct {
	Kind      index.Kind
	Name      string
	Primary   filter.Expr
	Secondary filter.Expr
	Temporal  bool
	Cost      float32

	ranges []index.ScanRange
	sorted bool
}

// QueryPlan is the selected strategy plus its materialized scan ranges,
// ordered by shard then start key.
type QueryPlan struct {
	Strategy  Strategy
	Ranges    []index.ScanRange
	Secondary filter.Expr
}

type Planner struct {
	set   *index.Set
	stats Stats
	log   zerolog.Logger
	cache *lru.Cache[string, cachedRanges]
}

type cachedRanges struct {
	ranges []index.ScanRange
	count  int
}

type Option func(*Planner)

func WithStats(s Stats) Option { return func(p *Planner) { p.stats = s } }

func WithLogger(l zerolog.Logger) Option { return func(p *Planner) { p.log = l } }

// WithCacheSize sets the decomposition cache capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(p *Planner) {
		p.cache = nil
		if n > 0 {
			p.cache, _ = lru.New[string, cachedRanges](n)
		}
	}
}

const defaultCacheSize = 256

func New(set *index.Set, opts ...Option) *Planner {
	p := &Planner{set: set, log: zerolog.Nop()}
	p.cache, _ = lru.New[string, cachedRanges](defaultCacheSize)
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan classifies the predicate, costs every eligible index, and returns the
// cheapest. sortField, when set, biases ties toward indices whose natural
// iteration order matches the requested sort.
func (p *Planner) Plan(pred filter.Expr, sortField string) (QueryPlan, error) {
	if pred == nil {
		pred = filter.Include{}
	}
	start := time.Now()

	var candidates []Strategy

	if s, ok := p.idStrategy(pred, sortField); ok {
		// Identifier lookups are point gets with no false positives; nothing
		// can beat them, so skip costing the rest.
		return p.choose([]Strategy{s}, pred, start), nil
	}

	rects, spatialExact, spatialOK := spatialRects(pred)
	trange, temporalExact, temporalOK := filter.TemporalBounds(pred)

	// A curve index that cannot decompose the predicate (degenerate bounds,
	// inverted boxes) is simply not a candidate; selection itself never fails.
	if p.set.Z3 != nil && spatialOK && temporalOK && trange.Bounded() {
		if s, err := p.z3Strategy(pred, rects, trange, spatialExact && temporalExact); err != nil {
			p.log.Debug().Err(err).Msg("z3 index not eligible")
		} else {
			candidates = append(candidates, s)
		}
	}
	if p.set.Z2 != nil && spatialOK {
		if s, err := p.z2Strategy(pred, rects, spatialExact, temporalOK); err != nil {
			p.log.Debug().Err(err).Msg("z2 index not eligible")
		} else {
			candidates = append(candidates, s)
		}
	}
	for _, aix := range p.set.Attr {
		if s, ok := p.attrStrategy(pred, aix, sortField); ok {
			candidates = append(candidates, s)
		}
	}

	candidates = append(candidates, p.fullScan(pred))
	return p.choose(candidates, pred, start), nil
}

func (p *Planner) choose(candidates []Strategy, pred filter.Expr, start time.Time) QueryPlan {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	p.log.Debug().
		Str("type", p.set.Schema.TypeName).
		Str("index", best.Name).
		Float32("cost", best.Cost).
		Int("ranges", len(best.ranges)).
		Str("predicate", pred.String()).
		Msg("query plan selected")
	observability.ObservePlan(best.Kind.String(), len(best.ranges), time.Since(start).Seconds())
	return QueryPlan{Strategy: best, Ranges: best.ranges, Secondary: best.Secondary}
}

func better(a, b Strategy) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	if a.sorted != b.sorted {
		return a.sorted
	}
	return exprSize(a.Secondary) < exprSize(b.Secondary)
}

func (p *Planner) idStrategy(pred filter.Expr, sortField string) (Strategy, bool) {
	if p.set.ID == nil {
		return Strategy{}, false
	}
	ids, residual, ok := filter.IDSet(pred)
	if !ok {
		return Strategy{}, false
	}
	s := Strategy{
		Kind:      index.Identifier,
		Name:      p.set.ID.Name(),
		Primary:   filter.NewIDIn(ids...),
		Secondary: residual,
		Cost:      idCost,
		sorted:    sortField == "" || sortField == "id",
	}
	if len(ids) > 0 {
		s.ranges = p.set.ID.ScanRanges(ids)
	}
	return s, true
}

func (p *Planner) z3Strategy(pred filter.Expr, rects []index.Rect, trange filter.TimeRange, exact bool) (Strategy, error) {
	key := fmt.Sprintf("z3|%v|%d|%d", rects, trange.Start.UnixMilli(), trange.End.UnixMilli())
	cr, hit := p.cachedRanges(key)
	if !hit {
		ranges, count, err := p.set.Z3.ScanRanges(rects, trange.Start, trange.End)
		if err != nil {
			return Strategy{}, err
		}
		cr = cachedRanges{ranges: ranges, count: count}
		p.storeRanges(key, cr)
	}
	if max := p.set.Schema.RangeOpts().MaxRanges; max > 0 && cr.count >= max {
		p.log.Debug().Str("type", p.set.Schema.TypeName).Int("ranges", cr.count).
			Msg("z3 decomposition hit range budget, coverage coarsened")
		observability.AddCoarsened()
	}
	cost := float32(cr.count)
	if !exact {
		cost *= imprecisePenalty
	}
	// Curve ranges over-select, so the spatial and temporal clauses are
	// re-checked post-scan: the whole predicate stays secondary.
	return Strategy{
		Kind:      index.SpatioTemporal,
		Name:      p.set.Z3.Name(),
		Primary:   filter.Residual(pred, func(e filter.Expr) bool { return !isSpatioTemporalClause(e) }),
		Secondary: pred,
		Temporal:  true,
		Cost:      cost,
		ranges:    cr.ranges,
	}, nil
}

func (p *Planner) z2Strategy(pred filter.Expr, rects []index.Rect, exact, hasTemporal bool) (Strategy, error) {
	key := fmt.Sprintf("z2|%v", rects)
	cr, hit := p.cachedRanges(key)
	if !hit {
		ranges, count, err := p.set.Z2.ScanRanges(rects)
		if err != nil {
			return Strategy{}, err
		}
		cr = cachedRanges{ranges: ranges, count: count}
		p.storeRanges(key, cr)
	}
	cost := float32(cr.count)
	if !exact {
		cost *= imprecisePenalty
	}
	if hasTemporal {
		cost *= noTimePenalty
	}
	return Strategy{
		Kind:      index.Spatial,
		Name:      p.set.Z2.Name(),
		Primary:   filter.Residual(pred, func(e filter.Expr) bool { return !isSpatialClause(e) }),
		Secondary: pred,
		Cost:      cost,
		ranges:    cr.ranges,
	}, nil
}

func (p *Planner) attrStrategy(pred filter.Expr, aix *index.AttrIndex, sortField string) (Strategy, bool) {
	values, residual, ok := filter.AttributeEq(pred, aix.Attribute())
	if !ok {
		return Strategy{}, false
	}
	var cost float32
	for _, v := range values {
		if p.stats != nil {
			if card, known := p.stats.Cardinality(aix.Attribute(), v); known {
				cost += float32(card)
				continue
			}
		}
		cost += attrDefaultCost
	}
	secondary := residual
	for _, v := range values {
		if strings.ContainsRune(v, 0) {
			// NUL collides with the key-layout value terminator, so the scan
			// range over-matches; re-check the whole predicate post-scan.
			secondary = pred
			break
		}
	}
	return Strategy{
		Kind:      index.Attribute,
		Name:      aix.Name(),
		Primary:   buildAttrPrimary(aix.Attribute(), values),
		Secondary: secondary,
		Cost:      cost,
		ranges:    aix.ScanRanges(values),
		sorted:    sortField == aix.Attribute(),
	}, true
}

func (p *Planner) fullScan(pred filter.Expr) Strategy {
	return Strategy{
		Kind:      index.FullScan,
		Name:      p.set.Full.Name(),
		Primary:   filter.Include{},
		Secondary: pred,
		Cost:      float32(math.Inf(1)),
		ranges:    p.set.Full.ScanRanges(),
	}
}

func (p *Planner) cachedRanges(key string) (cachedRanges, bool) {
	if p.cache == nil {
		return cachedRanges{}, false
	}
	return p.cache.Get(key)
}

func (p *Planner) storeRanges(key string, cr cachedRanges) {
	if p.cache != nil {
		p.cache.Add(key, cr)
	}
}

// spatialRects adapts filter bboxes to index rectangles.
func spatialRects(pred filter.Expr) ([]index.Rect, bool, bool) {
	boxes, exact, ok := filter.SpatialBounds(pred)
	if !ok {
		return nil, false, false
	}
	rects := make([]index.Rect, len(boxes))
	for i, b := range boxes {
		rects[i] = index.Rect{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
	}
	return rects, exact, true
}

func isSpatialClause(e filter.Expr) bool {
	_, ok := e.(filter.BBox)
	return ok
}

func isTemporalClause(e filter.Expr) bool {
	switch e.(type) {
	case filter.During, filter.Before, filter.After:
		return true
	}
	return false
}

func isSpatioTemporalClause(e filter.Expr) bool {
	return isSpatialClause(e) || isTemporalClause(e)
}

func buildAttrPrimary(attr string, values []string) filter.Expr {
	parts := make([]filter.Expr, len(values))
	for i, v := range values {
		parts[i] = filter.Eq{Attr: attr, Value: v}
	}
	return filter.NewOr(parts...)
}

func exprSize(e filter.Expr) int {
	switch v := e.(type) {
	case nil, filter.Include:
		return 0
	case filter.And:
		n := 0
		for _, c := range v.Children {
			n += exprSize(c)
		}
		return n
	case filter.Or:
		n := 0
		for _, c := range v.Children {
			n += exprSize(c)
		}
		return n
	case filter.Not:
		return exprSize(v.Child)
	}
	return 1
}
