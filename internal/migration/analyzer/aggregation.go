package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
)

var rateCallRe = regexp.MustCompile(`\b(rate|increase|irate)\s*\(`)

var (
	bottleneckKeywords = []string{"percent", "ratio", "lag", "latency", "delay", "utilization", "usage", "saturation"}
	volumeKeywords     = []string{"total", "bytes", "count", "size", "sent", "received", "evicted", "expired", "rejected", "errors", "requests"}
	ceilingKeywords    = []string{"connections", "connected", "clients", "threads", "queue", "replication", "slave", "replica"}
)

// GuessAggregation picks how per-instance series are folded into one value per tenant. The
// rules are ordered and the first match wins; the returned reason is never empty.
func GuessAggregation(metric, lhs string) (mode, reason string) {
	name := strings.ToLower(metric)
	if rateCallRe.MatchString(strings.ToLower(lhs)) {
		return model.AggSum, "contains rate/increase/irate: cluster aggregate total"
	}
	if strings.HasSuffix(name, "_total") {
		return model.AggSum, "counter naming convention (_total): cluster aggregate total"
	}
	if kw, ok := containsAny(name, bottleneckKeywords); ok {
		return model.AggMax, fmt.Sprintf("keyword %q: weakest link (single-point bottleneck)", kw)
	}
	if kw, ok := containsAny(name, volumeKeywords); ok {
		return model.AggSum, fmt.Sprintf("keyword %q: cumulative cluster volume", kw)
	}
	if strings.Contains(lhs, "/") {
		return model.AggMax, "contains division: usually a computed ratio"
	}
	if kw, ok := containsAny(name, ceilingKeywords); ok {
		return model.AggMax, fmt.Sprintf("keyword %q: single-point ceiling", kw)
	}
	return model.AggMax, "default fallback: assume worst-case single-point spike"
}

func containsAny(s string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}
	return "", false
}
