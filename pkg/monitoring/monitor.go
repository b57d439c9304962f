package monitoring

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuestionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latexfix_questions_total",
			Help: "Total number of processed questions by chapter and outcome",
		},
		[]string{"chapter", "outcome"},
	)

	ParseOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latexfix_parse_outcome_total",
			Help: "Total number of model responses by parse outcome",
		},
		[]string{"outcome"},
	)

	ModelCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "latexfix_model_call_duration_seconds",
			Help:    "Duration of model API calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

func Init() {
	prometheus.MustRegister(QuestionCounter)
	prometheus.MustRegister(ParseOutcomeCounter)
	prometheus.MustRegister(ModelCallDuration)
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
