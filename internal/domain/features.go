package domain

import "fmt"

// FeaturePoint represents one computed feature value for an instrument bar.
// Corresponds to feature_points table in ClickHouse. Value is nil where the
// feature is undefined at that bar (warmup prefix, no barrier touch).
type FeaturePoint struct {
	InstrumentID string   // instrument identifier
	TimestampMs  int64    // bar timestamp the value is aligned to (ms)
	Feature      string   // parameterized feature name, e.g. "tpsl_logreturn(0.05,0.05)"
	Value        *float64 // nil encodes NaN / undefined
}

// Feature kind constants. The parameterized name stored on FeaturePoint is
// produced by the corresponding name builder below.
const (
	FeatureKindTPSLLogReturn = "tpsl_logreturn"
	FeatureKindSlope         = "slope"
	FeatureKindZScore        = "zscore"
	FeatureKindLogReturn     = "log_return"
)

// Source series a kernel can be applied to.
const (
	SourceClose    = "close"
	SourceLogClose = "log_close"
)

// TPSLLogReturnName builds the stored feature name for a barrier-scan result.
func TPSLLogReturnName(tpFrac, slFrac float64) string {
	return fmt.Sprintf("%s(%g,%g)", FeatureKindTPSLLogReturn, tpFrac, slFrac)
}

// SlopeName builds the stored feature name for a rolling-slope result.
func SlopeName(source string, window int) string {
	return fmt.Sprintf("%s_%s(%d)", source, FeatureKindSlope, window)
}

// ZScoreName builds the stored feature name for a rolling z-score result.
func ZScoreName(source string, window int) string {
	return fmt.Sprintf("%s_%s(%d)", source, FeatureKindZScore, window)
}

// LogReturnName builds the stored feature name for a lagged log-return result.
func LogReturnName(offset int) string {
	return fmt.Sprintf("%s(%d)", FeatureKindLogReturn, offset)
}
