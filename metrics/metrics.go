package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "archiver_pages_fetched_total",
})
var MessagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "archiver_messages_fetched_total",
})
var RateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "archiver_rate_limit_waits_total",
})
var ExportsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "archiver_exports_finished_total",
}, []string{"outcome"})
var AttachmentDownloads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "archiver_attachment_downloads_total",
}, []string{"outcome"})
var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "archiver_cache_hits_total",
}, []string{"cache"})
var CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "archiver_cache_misses_total",
}, []string{"cache"})

func init() {
	prometheus.MustRegister(PagesFetched)
	prometheus.MustRegister(MessagesFetched)
	prometheus.MustRegister(RateLimitWaits)
	prometheus.MustRegister(ExportsFinished)
	prometheus.MustRegister(AttachmentDownloads)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}
