package logging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// PrometheusHook implements logrus.Hook by counting log lines per level.
type PrometheusHook struct {
	counters map[logrus.Level]prometheus.Counter
}

var countedLevels = []logrus.Level{
	logrus.DebugLevel,
	logrus.InfoLevel,
	logrus.WarnLevel,
	logrus.ErrorLevel,
}

// NewPrometheusHook creates and registers Prometheus counters for each log level.
func NewPrometheusHook() *PrometheusHook {
	return newPrometheusHook(prometheus.DefaultRegisterer)
}

func newPrometheusHook(registerer prometheus.Registerer) *PrometheusHook {
	counters := make(map[logrus.Level]prometheus.Counter, len(countedLevels))
	for _, level := range countedLevels {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "log_messages",
			Help: "Total number of log lines logged by level",
			ConstLabels: prometheus.Labels{
				"level": level.String(),
			},
		})
		registerer.MustRegister(counter)
		counters[level] = counter
	}
	return &PrometheusHook{counters: counters}
}

func (h *PrometheusHook) Levels() []logrus.Level {
	return countedLevels
}

func (h *PrometheusHook) Fire(entry *logrus.Entry) error {
	if counter, ok := h.counters[entry.Level]; ok {
		counter.Inc()
	}
	return nil
}
