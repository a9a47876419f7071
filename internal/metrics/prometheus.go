package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the assessment service
type Metrics struct {
	// Assessment metrics
	AssessmentsTotal     *prometheus.CounterVec
	AssessmentFailures   *prometheus.CounterVec
	AssessmentDuration   prometheus.Histogram
	StageDuration        *prometheus.HistogramVec
	ParkinsonProbability prometheus.Histogram
	QualityWarnings      prometheus.Counter

	// Audio metrics
	RecordingDuration prometheus.Histogram
	Conversions       prometheus.Counter

	// Extractor metrics
	ExtractorRequests  prometheus.Counter
	ExtractorSuccesses prometheus.Counter
	ExtractorFailures  prometheus.Counter
	ExtractorDuration  prometheus.Histogram

	// Scaler metrics
	ScalersFitted prometheus.Counter

	// Side-channel metrics
	HistoryErrors prometheus.Counter
	NotifyErrors  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Assessment metrics
		AssessmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parkinson_assessments_total",
			Help: "Total number of completed assessments by status",
		}, []string{"status"}),
		AssessmentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parkinson_assessment_failures_total",
			Help: "Total number of failed assessments by stage",
		}, []string{"stage"}),
		AssessmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkinson_assessment_duration_seconds",
			Help:    "End-to-end duration of an assessment",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parkinson_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"stage"}),
		ParkinsonProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkinson_probability",
			Help:    "Classifier probability reported per assessment",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		QualityWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_quality_warnings_total",
			Help: "Total number of audio quality warnings raised",
		}),

		// Audio metrics
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkinson_recording_duration_seconds",
			Help:    "Duration of submitted recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		Conversions: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_audio_conversions_total",
			Help: "Total number of recordings converted to WAV",
		}),

		// Extractor metrics
		ExtractorRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_extractor_requests_total",
			Help: "Total number of feature extraction requests",
		}),
		ExtractorSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_extractor_successes_total",
			Help: "Total number of successful feature extractions",
		}),
		ExtractorFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_extractor_failures_total",
			Help: "Total number of failed feature extractions",
		}),
		ExtractorDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkinson_extractor_duration_seconds",
			Help:    "Duration of feature extraction requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),

		// Scaler metrics
		ScalersFitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_scalers_fitted_total",
			Help: "Total number of scalers fitted because none was stored",
		}),

		// Side-channel metrics
		HistoryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_history_errors_total",
			Help: "Total number of assessments that could not be stored",
		}),
		NotifyErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkinson_notify_errors_total",
			Help: "Total number of verdicts that could not be published",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parkinson_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parkinson_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parkinson_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordAssessment records a completed assessment
func (m *Metrics) RecordAssessment(status string, probability, durationSeconds float64) {
	m.AssessmentsTotal.WithLabelValues(status).Inc()
	m.ParkinsonProbability.Observe(probability)
	m.AssessmentDuration.Observe(durationSeconds)
}

// RecordAssessmentFailure records an assessment aborted at the given stage
func (m *Metrics) RecordAssessmentFailure(stage string) {
	m.AssessmentFailures.WithLabelValues(stage).Inc()
}

// ObserveStage records the duration of one pipeline stage
func (m *Metrics) ObserveStage(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordRecording records the length of a submitted recording
func (m *Metrics) RecordRecording(durationSeconds float64, warnings int) {
	m.RecordingDuration.Observe(durationSeconds)
	m.QualityWarnings.Add(float64(warnings))
}

// RecordConversion increments the conversions counter
func (m *Metrics) RecordConversion() {
	m.Conversions.Inc()
}

// RecordExtractorSuccess records a successful extraction
func (m *Metrics) RecordExtractorSuccess(durationSeconds float64) {
	m.ExtractorRequests.Inc()
	m.ExtractorSuccesses.Inc()
	m.ExtractorDuration.Observe(durationSeconds)
}

// RecordExtractorFailure records a failed extraction
func (m *Metrics) RecordExtractorFailure(durationSeconds float64) {
	m.ExtractorRequests.Inc()
	m.ExtractorFailures.Inc()
	m.ExtractorDuration.Observe(durationSeconds)
}

// RecordScalerFitted increments the fitted scalers counter
func (m *Metrics) RecordScalerFitted() {
	m.ScalersFitted.Inc()
}

// RecordHistoryError increments the history errors counter
func (m *Metrics) RecordHistoryError() {
	m.HistoryErrors.Inc()
}

// RecordNotifyError increments the notify errors counter
func (m *Metrics) RecordNotifyError() {
	m.NotifyErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
