package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr         string
	LogLevel     string
	LogConsole   bool
	RedisAddr    string
	TypeName     string
	Bits         uint
	Shards       int
	RoundRobin   bool
	TimePeriod   string
	MaxRanges    int
	ScanDepth    int
	Attributes   []string
	PlanCacheLen int
	OpTimeout    time.Duration
}

func FromEnv() Config {
	return Config{
		Addr:         getenv("ADDR", ":8091"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogConsole:   getbool("LOG_CONSOLE", false),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		TypeName:     getenv("TYPE_NAME", "features"),
		Bits:         uint(getint("Z_BITS", 21)),
		Shards:       getint("SHARDS", 4),
		RoundRobin:   getbool("SHARDS_ROUND_ROBIN", false),
		TimePeriod:   getenv("TIME_PERIOD", "week"),
		MaxRanges:    getint("MAX_RANGES", 64),
		ScanDepth:    getint("SCAN_PRECISION", 0),
		Attributes:   splitList(getenv("ATTR_INDEXES", "")),
		PlanCacheLen: getint("PLAN_CACHE_SIZE", 256),
		OpTimeout:    getduration("OP_TIMEOUT", 250*time.Millisecond),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
