// zindex-explain prints the query plan for a predicate given on the command
// line, using the same env-configured schema as zindex-server.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spatialkv/zindex/internal/core/config"
	"github.com/spatialkv/zindex/internal/logger"
	"github.com/spatialkv/zindex/pkg/filter"
	"github.com/spatialkv/zindex/pkg/index"
	"github.com/spatialkv/zindex/pkg/planner"
)

func main() {
	bbox := flag.String("bbox", "", "minx,miny,maxx,maxy")
	during := flag.String("during", "", "start/end, RFC3339")
	ids := flag.String("ids", "", "comma-separated feature ids")
	eq := flag.String("eq", "", "attr=value equality clause")
	sortField := flag.String("sort", "", "requested sort field")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "zindex-explain"}, os.Stderr)

	schema, err := cfg.Schema()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schema config")
	}
	set, err := index.NewSet(schema)
	if err != nil {
		log.Fatal().Err(err).Msg("building index set")
	}

	pred, err := buildPredicate(*bbox, *during, *ids, *eq)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid predicate")
	}

	plan, err := planner.New(set, planner.WithLogger(log)).Plan(pred, *sortField)
	if err != nil {
		log.Fatal().Err(err).Msg("planning failed")
	}

	cost := fmt.Sprintf("%g", plan.Strategy.Cost)
	if math.IsInf(float64(plan.Strategy.Cost), 1) {
		cost = "inf (full scan)"
	}
	fmt.Printf("predicate: %s\n", pred)
	fmt.Printf("index:     %s\n", plan.Strategy.Name)
	fmt.Printf("cost:      %s\n", cost)
	fmt.Printf("primary:   %s\n", plan.Strategy.Primary)
	fmt.Printf("secondary: %s\n", plan.Secondary)
	fmt.Printf("ranges:    %d\n", len(plan.Ranges))
	for _, r := range plan.Ranges {
		fmt.Printf("  shard %3d  %s .. %s\n", r.Shard, hex.EncodeToString(r.Start), hex.EncodeToString(r.End))
	}
}

func buildPredicate(bbox, during, ids, eq string) (filter.Expr, error) {
	var clauses []filter.Expr

	if bbox != "" {
		var minX, minY, maxX, maxY float64
		if _, err := fmt.Sscanf(bbox, "%f,%f,%f,%f", &minX, &minY, &maxX, &maxY); err != nil {
			return nil, fmt.Errorf("bbox: %w", err)
		}
		clauses = append(clauses, filter.BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
	}

	if during != "" {
		parts := strings.SplitN(during, "/", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("during: want start/end")
		}
		start, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("during start: %w", err)
		}
		end, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("during end: %w", err)
		}
		clauses = append(clauses, filter.During{Start: start, End: end})
	}

	if ids != "" {
		clauses = append(clauses, filter.NewIDIn(strings.Split(ids, ",")...))
	}

	if eq != "" {
		kv := strings.SplitN(eq, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("eq: want attr=value")
		}
		clauses = append(clauses, filter.Eq{Attr: kv[0], Value: kv[1]})
	}

	return filter.NewAnd(clauses...), nil
}
