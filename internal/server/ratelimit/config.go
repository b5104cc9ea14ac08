package ratelimit

import (
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one route. Path ending in "/" matches every path below it.
type Rule struct {
	Path   string
	Method string
	Limit  int           // requests per Window; zero means unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

func (r Rule) matches(path, method string) bool {
	if r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Path, "/") {
		return strings.HasPrefix(path, r.Path)
	}
	return r.Path == path
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allow           []netip.Prefix // never limited
	Deny            []netip.Prefix // always rejected
	Rules           []Rule
}

// DefaultRules limits job creation hardest since each job runs the whole
// pipeline. Reads and live streams use the default limit.
func DefaultRules() []Rule {
	return []Rule{
		{Path: "/health", Method: "GET"},
		{Path: "/jobs", Method: "POST", Limit: 20, Window: time.Hour, Burst: 5},
		{Path: "/jobs/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

// LoadConfig reads RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) *Config {
	env := envReader(getenv)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Allow:           ParsePrefixes(getenv("RATE_LIMIT_ALLOW")),
		Deny:            ParsePrefixes(getenv("RATE_LIMIT_DENY")),
		Rules:           DefaultRules(),
	}
}

// rule returns the rule for a request, falling back to the default limit.
func (c *Config) rule(path, method string) Rule {
	for _, r := range c.Rules {
		if r.matches(path, method) {
			return r
		}
	}
	return Rule{Limit: c.DefaultLimit, Window: c.DefaultWindow}
}

// ParsePrefixes parses a comma-separated list of addresses or CIDR ranges.
// Entries that parse as neither are skipped.
func ParsePrefixes(list string) []netip.Prefix {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if p, err := netip.ParsePrefix(item); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(item); err == nil {
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return out
}

func contains(prefixes []netip.Prefix, client string) bool {
	if len(prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(client)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if n, err := strconv.Atoi(e(key)); err == nil {
		return n
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e(key)); err == nil {
		return d
	}
	return def
}
