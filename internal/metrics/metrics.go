package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "leadchat_realtime_subscribers",
		Help: "Active lead channel subscribers on this instance",
	})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadchat_events_published_total",
		Help: "Change events published to lead channels",
	}, []string{"type"})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leadchat_messages_sent_total",
		Help: "Chat messages persisted",
	})

	registerOnce sync.Once
)

// Init 注册所有指标, 可重复调用
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Subscribers, EventsPublished, MessagesSent)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
