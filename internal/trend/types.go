package trend

// #region config

// Config holds windows and thresholds for trend and drift analysis.
type Config struct {
	Window                        int     // recent cycles used for trend stats
	ErrorThresholdForOptimization float64 // average error above this flags optimization
	TrendThresholdForOptimization float64 // error slope above this flags optimization
	MinSamplesForDrift            int     // minimum history length for drift checks
	DriftWindow                   int     // trailing "recent" window size
	DriftThreshold                float64 // accuracy delta counted as drift
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Window:                        20,
		ErrorThresholdForOptimization: 0.2,
		TrendThresholdForOptimization: 0.05,
		MinSamplesForDrift:            20,
		DriftWindow:                   10,
		DriftThreshold:                0.15,
	}
}

// #endregion config

// #region performance-trends

// PerformanceTrends is the derived rolling view over recent cycles.
type PerformanceTrends struct {
	AverageError         float64
	ErrorTrend           float64 // signed OLS slope of error over window position
	AccuracyStability    float64 // 1/(1+stddev(1-error)), in (0,1]
	RequiresOptimization bool
	SampleCount          int
	Reason               string
}

// #endregion performance-trends

// #region drift-detection

// DriftDetection is the derived recent-vs-historical accuracy comparison.
type DriftDetection struct {
	DriftDetected      bool
	Severity           float64 // accuracyDrift / threshold
	AccuracyDrift      float64
	RecentAccuracy     float64
	HistoricalAccuracy float64
	Reason             string
}

// #endregion drift-detection
