// Package router validates plan-explain requests and renders plans as JSON.
package router

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spatialkv/zindex/internal/core/observability"
	"github.com/spatialkv/zindex/pkg/filter"
	"github.com/spatialkv/zindex/pkg/planner"
)

type planResponse struct {
	Index     string      `json:"index"`
	Cost      float64     `json:"cost"`
	Temporal  bool        `json:"temporal"`
	Primary   string      `json:"primary"`
	Secondary string      `json:"secondary"`
	Ranges    []planRange `json:"ranges"`
}

type planRange struct {
	Shard int    `json:"shard"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// HandlePlan parses query params into a predicate, plans it, and explains the
// chosen strategy.
func HandlePlan(logger zerolog.Logger, p *planner.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pred, sortField, err := ParsePlanRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP("/plan", http.StatusBadRequest)
			return
		}

		plan, err := p.Plan(pred, sortField)
		if err != nil {
			logger.Error().Err(err).Msg("plan failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			observability.ObserveHTTP("/plan", http.StatusInternalServerError)
			return
		}

		resp := planResponse{
			Index:     plan.Strategy.Name,
			Cost:      float64(plan.Strategy.Cost),
			Temporal:  plan.Strategy.Temporal,
			Primary:   plan.Strategy.Primary.String(),
			Secondary: plan.Secondary.String(),
		}
		if math.IsInf(resp.Cost, 1) {
			resp.Cost = -1 // JSON has no Inf; -1 marks the full-scan fallback
		}
		for _, sr := range plan.Ranges {
			resp.Ranges = append(resp.Ranges, planRange{
				Shard: int(sr.Shard),
				Start: hex.EncodeToString(sr.Start),
				End:   hex.EncodeToString(sr.End),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
		observability.ObserveHTTP("/plan", http.StatusOK)
	}
}

// ParsePlanRequest builds a predicate from query params: bbox (minx,miny,
// maxx,maxy), during (start/end RFC3339), before, after, ids (comma list),
// eq (attr=value, repeatable), sort.
func ParsePlanRequest(r *http.Request) (filter.Expr, string, error) {
	q := r.URL.Query()
	var clauses []filter.Expr

	if raw := strings.TrimSpace(q.Get("bbox")); raw != "" {
		bb, err := parseBBox(raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid bbox: %w", err)
		}
		clauses = append(clauses, bb)
	}

	if raw := strings.TrimSpace(q.Get("during")); raw != "" {
		parts := strings.SplitN(raw, "/", 2)
		if len(parts) != 2 {
			return nil, "", errors.New("during must be start/end")
		}
		start, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, "", fmt.Errorf("invalid during start: %w", err)
		}
		end, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, "", fmt.Errorf("invalid during end: %w", err)
		}
		clauses = append(clauses, filter.During{Start: start, End: end})
	}

	if raw := strings.TrimSpace(q.Get("before")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid before: %w", err)
		}
		clauses = append(clauses, filter.Before{T: t})
	}

	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid after: %w", err)
		}
		clauses = append(clauses, filter.After{T: t})
	}

	if raw := strings.TrimSpace(q.Get("ids")); raw != "" {
		ids := strings.Split(raw, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		clauses = append(clauses, filter.NewIDIn(ids...))
	}

	for _, raw := range q["eq"] {
		kv := strings.SplitN(raw, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, "", fmt.Errorf("invalid eq %q, want attr=value", raw)
		}
		clauses = append(clauses, filter.Eq{Attr: strings.TrimSpace(kv[0]), Value: kv[1]})
	}

	return filter.NewAnd(clauses...), strings.TrimSpace(q.Get("sort")), nil
}

func parseBBox(raw string) (filter.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return filter.BBox{}, errors.New("want minx,miny,maxx,maxy")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return filter.BBox{}, err
		}
		vals[i] = v
	}
	if vals[1] > vals[3] {
		return filter.BBox{}, errors.New("miny greater than maxy")
	}
	return filter.BBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}
