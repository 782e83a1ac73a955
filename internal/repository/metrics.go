package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const metricsPrefix = "moviefind:metrics:"

// hmaxScript sets a hash field to ARGV[2] if it exceeds the stored value.
const hmaxScript = `
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if tonumber(ARGV[2]) > cur then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
end
return 1`

// Metrics stores API and provider call statistics in Redis.
type Metrics struct {
	client *redis.Client
	now    func() time.Time
}

// CallStats summarises the calls recorded under one name.
type CallStats struct {
	Name         string  `json:"name"`
	TotalCalls   int64   `json:"total_calls"`
	SuccessCalls int64   `json:"success_calls"`
	ErrorCalls   int64   `json:"error_calls"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
}

// DailyStats represents daily API statistics
type DailyStats struct {
	Date       string  `json:"date"`
	TotalCalls int64   `json:"total_calls"`
	AvgLatency float64 `json:"avg_latency"`
}

// OverallStats represents overall system statistics
type OverallStats struct {
	TotalAPICalls  int64        `json:"total_api_calls"`
	TodayAPICalls  int64        `json:"today_api_calls"`
	AvgLatencyMs   float64      `json:"avg_latency_ms"`
	ErrorRate      float64      `json:"error_rate"`
	TopEndpoints   []CallStats  `json:"top_endpoints"`
	Provider       []CallStats  `json:"provider"`
	ProviderErrors float64      `json:"provider_error_rate"`
	DailyTrend     []DailyStats `json:"daily_trend"`
	Uptime         int64        `json:"uptime_seconds"`
}

// NewMetrics wraps a connected client.
func NewMetrics(client *redis.Client) *Metrics {
	return &Metrics{client: client, now: time.Now}
}

// RecordAPICall records one request served by this process.
func (m *Metrics) RecordAPICall(ctx context.Context, path string, statusCode int, latencyMs float64) error {
	now := m.now()
	pipe := m.client.Pipeline()

	m.recordCall(ctx, pipe, "path", path, statusCode >= 200 && statusCode < 400, latencyMs)

	dailyKey := metricsPrefix + "daily:" + now.Format("2006-01-02")
	pipe.HIncrBy(ctx, dailyKey, "total", 1)
	pipe.HIncrByFloat(ctx, dailyKey, "latency_sum", latencyMs)
	pipe.Expire(ctx, dailyKey, 30*24*time.Hour)

	pipe.Incr(ctx, metricsPrefix+"global:total")
	pipe.IncrByFloat(ctx, metricsPrefix+"global:latency_sum", latencyMs)

	_, err := pipe.Exec(ctx)
	return err
}

// RecordProviderCall records one upstream request. It satisfies
// service.CallRecorder.
func (m *Metrics) RecordProviderCall(ctx context.Context, endpoint string, ok bool, latencyMs float64) error {
	pipe := m.client.Pipeline()
	m.recordCall(ctx, pipe, "provider", endpoint, ok, latencyMs)
	_, err := pipe.Exec(ctx)
	return err
}

func (m *Metrics) recordCall(ctx context.Context, pipe redis.Pipeliner, kind, name string, ok bool, latencyMs float64) {
	key := fmt.Sprintf("%s%s:%s", metricsPrefix, kind, name)
	pipe.HIncrBy(ctx, key, "total", 1)
	pipe.HIncrByFloat(ctx, key, "latency_sum", latencyMs)
	if ok {
		pipe.HIncrBy(ctx, key, "success", 1)
	} else {
		pipe.HIncrBy(ctx, key, "error", 1)
	}
	pipe.Eval(ctx, hmaxScript, []string{key}, "max_latency", latencyMs)
	pipe.SAdd(ctx, metricsPrefix+kind+"s", name)
}

// GetCallStats gets statistics for one path or provider endpoint.
func (m *Metrics) GetCallStats(ctx context.Context, kind, name string) (*CallStats, error) {
	key := fmt.Sprintf("%s%s:%s", metricsPrefix, kind, name)
	result, err := m.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	stats := &CallStats{Name: name}
	if len(result) == 0 {
		return stats, nil
	}

	stats.TotalCalls, _ = strconv.ParseInt(result["total"], 10, 64)
	stats.SuccessCalls, _ = strconv.ParseInt(result["success"], 10, 64)
	stats.ErrorCalls, _ = strconv.ParseInt(result["error"], 10, 64)
	stats.MaxLatencyMs, _ = strconv.ParseFloat(result["max_latency"], 64)
	latencySum, _ := strconv.ParseFloat(result["latency_sum"], 64)
	if stats.TotalCalls > 0 {
		stats.AvgLatencyMs = latencySum / float64(stats.TotalCalls)
	}
	return stats, nil
}

func (m *Metrics) allStats(ctx context.Context, kind string) ([]CallStats, error) {
	names, err := m.client.SMembers(ctx, metricsPrefix+kind+"s").Result()
	if err != nil {
		return nil, err
	}
	all := make([]CallStats, 0, len(names))
	for _, name := range names {
		s, err := m.GetCallStats(ctx, kind, name)
		if err == nil && s.TotalCalls > 0 {
			all = append(all, *s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TotalCalls > all[j].TotalCalls })
	return all, nil
}

// GetOverallStats gets overall system statistics
func (m *Metrics) GetOverallStats(ctx context.Context) (*OverallStats, error) {
	stats := &OverallStats{}

	total, _ := m.client.Get(ctx, metricsPrefix+"global:total").Int64()
	latencySum, _ := m.client.Get(ctx, metricsPrefix+"global:latency_sum").Float64()
	stats.TotalAPICalls = total
	if total > 0 {
		stats.AvgLatencyMs = latencySum / float64(total)
	}

	todayKey := metricsPrefix + "daily:" + m.now().Format("2006-01-02")
	stats.TodayAPICalls, _ = m.client.HGet(ctx, todayKey, "total").Int64()

	paths, err := m.allStats(ctx, "path")
	if err != nil {
		return nil, err
	}
	var pathErrors int64
	for _, p := range paths {
		pathErrors += p.ErrorCalls
	}
	if len(paths) > 10 {
		paths = paths[:10]
	}
	stats.TopEndpoints = paths
	if total > 0 {
		stats.ErrorRate = float64(pathErrors) / float64(total) * 100
	}

	provider, err := m.allStats(ctx, "provider")
	if err != nil {
		return nil, err
	}
	stats.Provider = provider
	var providerTotal, providerErrors int64
	for _, p := range provider {
		providerTotal += p.TotalCalls
		providerErrors += p.ErrorCalls
	}
	if providerTotal > 0 {
		stats.ProviderErrors = float64(providerErrors) / float64(providerTotal) * 100
	}

	stats.DailyTrend = m.getDailyTrend(ctx, 7)

	startTime, err := m.client.Get(ctx, metricsPrefix+"server:start_time").Int64()
	if err == nil && startTime > 0 {
		stats.Uptime = m.now().Unix() - startTime
	}

	return stats, nil
}

// getDailyTrend gets daily statistics for the last N days
func (m *Metrics) getDailyTrend(ctx context.Context, days int) []DailyStats {
	var trend []DailyStats
	for i := days - 1; i >= 0; i-- {
		date := m.now().AddDate(0, 0, -i).Format("2006-01-02")
		result, err := m.client.HGetAll(ctx, metricsPrefix+"daily:"+date).Result()
		if err != nil {
			continue
		}

		total, _ := strconv.ParseInt(result["total"], 10, 64)
		latencySum, _ := strconv.ParseFloat(result["latency_sum"], 64)

		avgLatency := 0.0
		if total > 0 {
			avgLatency = latencySum / float64(total)
		}
		trend = append(trend, DailyStats{Date: date, TotalCalls: total, AvgLatency: avgLatency})
	}
	return trend
}

// RecordServerStart records server start time
func (m *Metrics) RecordServerStart(ctx context.Context) {
	m.client.Set(ctx, metricsPrefix+"server:start_time", m.now().Unix(), 0)
}

// ResetMetrics resets all metrics
func (m *Metrics) ResetMetrics(ctx context.Context) error {
	_, err := deleteMatching(ctx, m.client, metricsPrefix+"*")
	return err
}
