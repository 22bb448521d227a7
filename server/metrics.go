package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Issafulldev/notbroke/cache"
	"github.com/Issafulldev/notbroke/ratelimit"
)

var (
	cacheHitsDesc = prometheus.NewDesc(
		"notbroke_cache_hits_total",
		"Number of cache lookups served from the cache.",
		nil, nil)
	cacheMissesDesc = prometheus.NewDesc(
		"notbroke_cache_misses_total",
		"Number of cache lookups that fell through to the database.",
		nil, nil)
	cacheSetsDesc = prometheus.NewDesc(
		"notbroke_cache_sets_total",
		"Number of entries written into the cache.",
		nil, nil)
	cacheInvalidationsDesc = prometheus.NewDesc(
		"notbroke_cache_invalidations_total",
		"Number of entries removed by prefix invalidation.",
		nil, nil)
	cacheSizeDesc = prometheus.NewDesc(
		"notbroke_cache_entries",
		"Entries currently held in the cache, expired ones included.",
		nil, nil)
	limiterAllowedDesc = prometheus.NewDesc(
		"notbroke_ratelimit_allowed_total",
		"Number of requests admitted by the rate limiter.",
		nil, nil)
	limiterRejectedDesc = prometheus.NewDesc(
		"notbroke_ratelimit_rejected_total",
		"Number of requests rejected by the rate limiter.",
		nil, nil)
	limiterKeysDesc = prometheus.NewDesc(
		"notbroke_ratelimit_tracked_keys",
		"Endpoint/client pairs currently tracked by the rate limiter.",
		nil, nil)
)

// statsCollector projects the cache and limiter counters as const metrics
// so /metrics always reflects the live values without a scrape loop.
type statsCollector struct {
	cache   cache.Cache
	limiter *ratelimit.Limiter
}

func (sc *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheSetsDesc
	ch <- cacheInvalidationsDesc
	ch <- cacheSizeDesc
	ch <- limiterAllowedDesc
	ch <- limiterRejectedDesc
	ch <- limiterKeysDesc
}

func (sc *statsCollector) Collect(ch chan<- prometheus.Metric) {
	cs := sc.cache.Stats()
	ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(cs.Hits))
	ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(cs.Misses))
	ch <- prometheus.MustNewConstMetric(cacheSetsDesc, prometheus.CounterValue, float64(cs.Sets))
	ch <- prometheus.MustNewConstMetric(cacheInvalidationsDesc, prometheus.CounterValue, float64(cs.Invalidations))
	ch <- prometheus.MustNewConstMetric(cacheSizeDesc, prometheus.GaugeValue, float64(cs.CurrentSize))

	ls := sc.limiter.Stats()
	ch <- prometheus.MustNewConstMetric(limiterAllowedDesc, prometheus.CounterValue, float64(ls.Allowed))
	ch <- prometheus.MustNewConstMetric(limiterRejectedDesc, prometheus.CounterValue, float64(ls.Rejected))
	ch <- prometheus.MustNewConstMetric(limiterKeysDesc, prometheus.GaugeValue, float64(ls.TrackedKeys))
}

// metricsHandler serves a private registry so tests and embedders never
// collide with prometheus.DefaultRegisterer.
func (s *Server) metricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(&statsCollector{cache: s.store.Cache(), limiter: s.limiter})
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
