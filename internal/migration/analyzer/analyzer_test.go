package analyzer

import (
	"testing"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends() map[string]Analyzer {
	return map[string]Analyzer{KindAST: NewAST(), KindRegex: NewRegex()}
}

func TestNewSelectsBackend(t *testing.T) {
	assert.Equal(t, KindAST, New(KindAST).Kind())
	assert.Equal(t, KindAST, New("").Kind())
	assert.Equal(t, KindRegex, New(KindRegex).Kind())
	assert.Equal(t, KindRegex, New("lexer").Kind())
}

func TestMetricNames(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"simple", "mysql_up > 0", []string{"mysql_up"}},
		{"labels", `mysql_up{job="mysql", instance=~"10.0.*:3306"} == 0`, []string{"mysql_up"}},
		{"rate wrapped", "rate(http_requests_total[5m]) > 100", []string{"http_requests_total"}},
		{"aggregation with offset", "sum by (user) (rate(mysql_global_status_queries[5m] offset 1h))", []string{"mysql_global_status_queries"}},
		{"compound and", "(mysql_global_status_threads_connected > 100) and (mysql_global_status_threads_running > 50)",
			[]string{"mysql_global_status_threads_connected", "mysql_global_status_threads_running"}},
		{"or unless", "metric_a > 1 or metric_b > 2 unless metric_c > 3", []string{"metric_a", "metric_b", "metric_c"}},
		{"histogram_quantile", "histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))", []string{"http_request_duration_seconds_bucket"}},
		{"arithmetic", "node_memory_MemTotal_bytes - node_memory_MemAvailable_bytes > 1e9", []string{"node_memory_MemTotal_bytes", "node_memory_MemAvailable_bytes"}},
		{"subquery", "max_over_time(rate(jobs_done_total[5m])[30m:1m])", []string{"jobs_done_total"}},
		{"unary", "-my_metric", []string{"my_metric"}},
		{"paren", "(my_metric > 0)", []string{"my_metric"}},
		{"dedup", "errors_total / errors_total", []string{"errors_total"}},
		{"grouping on", "a_bytes / on(instance) group_left b_bytes", []string{"a_bytes", "b_bytes"}},
	}
	for kind, a := range backends() {
		for _, tt := range tests {
			t.Run(kind+"/"+tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, a.MetricNames(tt.expr))
			})
		}
	}
}

func TestMetricNamesInvalidIsEmpty(t *testing.T) {
	for kind, a := range backends() {
		t.Run(kind, func(t *testing.T) {
			assert.Empty(t, a.MetricNames("this is not PromQL {{{}}"))
		})
	}
}

func TestMetricNamesNameMatcher(t *testing.T) {
	assert.Equal(t, []string{"foo_bytes"}, NewAST().MetricNames(`{__name__="foo_bytes"} > 1`))
}

func TestHasSemanticBreak(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{`absent(mysql_up{job="mysql"})`, true},
		{`predict_linear(node_filesystem_free_bytes[1h], 4*3600) < 0`, true},
		{`sum(predict_linear(x[1h],3600)) > 0`, true},
		{`max by (job) (label_replace(up, "a", "$1", "job", "(.*)")) > 0`, true},
		{`holt_winters(x[1h], 0.5, 0.5) > 1`, true},
		{`rate(http_requests_total[5m]) > 100`, false},
		{`absent_total > 1`, false},
	}
	for kind, a := range backends() {
		for _, tt := range tests {
			t.Run(kind+"/"+tt.expr, func(t *testing.T) {
				assert.Equal(t, tt.want, a.HasSemanticBreak(tt.expr))
			})
		}
	}
}

func TestLabelMatchers(t *testing.T) {
	for kind, a := range backends() {
		t.Run(kind, func(t *testing.T) {
			hints := a.LabelMatchers(`redis_connected_clients{db="0", role="master"} > 100`)
			require.Len(t, hints, 1)
			assert.Equal(t, "redis_connected_clients", hints[0].Metric)
			assert.Equal(t, map[string]string{"db": "0", "role": "master"}, hints[0].Labels)

			hints = a.LabelMatchers(`mysql_up{job="mysql", instance="10.0.0.1:3306", queue="tasks"} == 0`)
			require.Len(t, hints, 1)
			assert.Equal(t, map[string]string{"queue": "tasks"}, hints[0].Labels)

			assert.Empty(t, a.LabelMatchers(`mysql_up{job="mysql", queue=~"t.*"} == 0`))
		})
	}
}

func TestValidate(t *testing.T) {
	for kind, a := range backends() {
		t.Run(kind, func(t *testing.T) {
			assert.NoError(t, a.Validate(`sum by (job) (rate(x{a="b"}[5m]))`))
			assert.Error(t, a.Validate(`sum(rate(x[5m])`))
			assert.Error(t, a.Validate(`x{a="b}`))
			assert.Error(t, a.Validate(""))
		})
	}
}

func TestParseThreshold(t *testing.T) {
	for kind, a := range backends() {
		t.Run(kind, func(t *testing.T) {
			p, err := ParseThreshold(a, "mysql_global_status_threads_connected > 100")
			require.NoError(t, err)
			assert.Equal(t, ">", p.Op)
			assert.Equal(t, "100", p.Value)
			assert.Equal(t, "mysql_global_status_threads_connected", p.PrimaryMetric)
			assert.False(t, p.IsComplex)

			p, err = ParseThreshold(a, "rate(mysql_global_status_slow_queries[5m]) > 0.1")
			require.NoError(t, err)
			assert.True(t, p.IsComplex)
			assert.Equal(t, "0.1", p.Value)
			assert.Equal(t, "mysql_global_status_slow_queries", p.PrimaryMetric)
			assert.Contains(t, p.Metrics, p.PrimaryMetric)

			p, err = ParseThreshold(a, "metric > 1e6")
			require.NoError(t, err)
			assert.Equal(t, "1e6", p.Value)

			_, err = ParseThreshold(a, "absent(mysql_up)")
			assert.ErrorIs(t, err, model.ErrParseFailure)

			_, err = ParseThreshold(a, "absent(mysql_up) > 0")
			assert.ErrorIs(t, err, model.ErrSemanticBreak)

			_, err = ParseThreshold(a, "up > 1.2.3")
			assert.ErrorIs(t, err, model.ErrParseFailure)
		})
	}
}

func TestParseThresholdOperators(t *testing.T) {
	a := NewAST()
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		t.Run(op, func(t *testing.T) {
			p, err := ParseThreshold(a, "requests_inflight "+op+" 42.5")
			require.NoError(t, err)
			assert.Equal(t, op, p.Op)
			assert.Equal(t, "42.5", p.Value)
			assert.Equal(t, "requests_inflight", p.LHS)
		})
	}
}

func TestGuessAggregation(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		lhs    string
		want   string
	}{
		{"rate", "mysql_slow_queries", "rate(mysql_global_status_slow_queries[5m])", model.AggSum},
		{"increase", "http_requests", "increase(http_requests_total[1h])", model.AggSum},
		{"rate beats latency keyword", "request_latency", "rate(request_latency[5m])", model.AggSum},
		{"total suffix", "http_requests_total", "http_requests_total", model.AggSum},
		{"percent", "cpu_percent", "container_cpu_percent", model.AggMax},
		{"latency", "request_latency", "request_latency_seconds", model.AggMax},
		{"connections", "mysql_connections", "mysql_global_status_threads_connected", model.AggMax},
		{"bytes", "network_bytes", "network_receive_bytes", model.AggSum},
		{"division", "buffer_pool", "pages_data / pages_total * 100", model.AggMax},
		{"fallback", "some_obscure_metric", "some_obscure_metric", model.AggMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, reason := GuessAggregation(tt.metric, tt.lhs)
			assert.Equal(t, tt.want, mode)
			assert.NotEmpty(t, reason)
		})
	}
	_, reason := GuessAggregation("some_obscure_metric", "some_obscure_metric")
	assert.Contains(t, reason, "fallback")
}
