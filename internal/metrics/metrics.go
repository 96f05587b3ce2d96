package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages committed to the store.",
	})
	ConversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_conversations_created_total",
		Help: "Conversations created (deduplicated find-or-create misses).",
	})
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Currently open websocket connections.",
	})
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_cache_hits_total",
		Help: "Cache hits by key kind.",
	}, []string{"kind"})
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_cache_misses_total",
		Help: "Cache misses (including cache errors) by key kind.",
	}, []string{"kind"})
)

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
