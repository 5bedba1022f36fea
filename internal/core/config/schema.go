package config

import (
	"fmt"

	"github.com/spatialkv/zindex/pkg/index"
	"github.com/spatialkv/zindex/pkg/timebin"
)

// Schema translates the env config into an index schema.
func (c Config) Schema() (index.Schema, error) {
	period, err := timebin.ParsePeriod(c.TimePeriod)
	if err != nil {
		return index.Schema{}, fmt.Errorf("config: %w", err)
	}
	return index.Schema{
		TypeName:   c.TypeName,
		Bits:       c.Bits,
		Period:     period,
		Shards:     c.Shards,
		RoundRobin: c.RoundRobin,
		MaxRanges:  c.MaxRanges,
		Precision:  c.ScanDepth,
		Attributes: c.Attributes,
	}, nil
}
