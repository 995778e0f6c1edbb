package domain

// FeatureRequest describes one feature the pipeline should compute for every
// instrument. Exactly the parameters relevant to Kind are set; the rest stay
// at their zero values.
type FeatureRequest struct {
	Kind string `yaml:"kind"` // tpsl_logreturn | slope | zscore | log_return

	// tpsl_logreturn parameters (fractional, 0.05 = 5%)
	TPFrac float64 `yaml:"tp_frac,omitempty"`
	SLFrac float64 `yaml:"sl_frac,omitempty"`

	// slope / zscore parameters
	Source string `yaml:"source,omitempty"` // close | log_close (default close)
	Window int    `yaml:"window,omitempty"`

	// zscore only; 0 means window/4 (min 1)
	MinPeriods int `yaml:"min_periods,omitempty"`

	// log_return parameter; positive looks back, negative looks forward
	Offset int `yaml:"offset,omitempty"`
}

// Name returns the parameterized feature name stored on FeaturePoint rows.
func (r FeatureRequest) Name() string {
	switch r.Kind {
	case FeatureKindTPSLLogReturn:
		return TPSLLogReturnName(r.TPFrac, r.SLFrac)
	case FeatureKindSlope:
		return SlopeName(r.sourceOrDefault(), r.Window)
	case FeatureKindZScore:
		return ZScoreName(r.sourceOrDefault(), r.Window)
	case FeatureKindLogReturn:
		return LogReturnName(r.Offset)
	}
	return r.Kind
}

func (r FeatureRequest) sourceOrDefault() string {
	if r.Source == "" {
		return SourceClose
	}
	return r.Source
}
