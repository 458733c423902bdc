package retrieve

// Basis selects which end of the full-text score range anchors the hit score
// floor. In "auto" mode the max score anchors when date adjustment is off and
// the min score when it is on; either end can also be pinned explicitly.
type Basis string

const (
	BasisAuto Basis = "auto"
	BasisMax  Basis = "max"
	BasisMin  Basis = "min"
)

// Options are the query-time tunables for one retrieval call.
type Options struct {
	UseSummary             bool    `json:"use_summary"`
	SummaryScoreThreshold  float64 `json:"summary_hit_score_threshold"`
	FullTextScoreThreshold float64 `json:"full_text_hit_score_threshold"`
	SummaryWeight          float64 `json:"summary_weight_over_full_text"`
	FullTextBasis          Basis   `json:"full_text_threshold_basis"`
	UseDate                bool    `json:"use_date"`
	PointsPerDayOld        float64 `json:"points_deduct_per_day_old"`
	MaxContextLength       int     `json:"max_length_rag_text"`
	SummaryWindowRadius    int     `json:"summary_window_radius"`
	FullTextWindowRadius   int     `json:"full_text_window_radius"`
	SummaryTopK            int     `json:"summary_top_k"`
	FullTextTopK           int     `json:"full_text_top_k"`
}

func DefaultOptions() Options {
	return Options{
		UseSummary:             true,
		SummaryScoreThreshold:  0.9,
		FullTextScoreThreshold: 0.8,
		SummaryWeight:          1.5,
		FullTextBasis:          BasisAuto,
		UseDate:                false,
		PointsPerDayOld:        0,
		MaxContextLength:       15000,
		SummaryWindowRadius:    1,
		FullTextWindowRadius:   2,
		SummaryTopK:            30,
		FullTextTopK:           20,
	}
}

// Clamped returns a copy with every field forced into its documented range.
func (o Options) Clamped() Options {
	def := DefaultOptions()
	o.SummaryScoreThreshold = clampFloat(o.SummaryScoreThreshold, 0, 1)
	o.FullTextScoreThreshold = clampFloat(o.FullTextScoreThreshold, 0, 1)
	o.SummaryWeight = clampFloat(o.SummaryWeight, 1, 5)
	if o.PointsPerDayOld < 0 {
		o.PointsPerDayOld = 0
	}
	if o.MaxContextLength <= 0 {
		o.MaxContextLength = def.MaxContextLength
	}
	if o.SummaryWindowRadius < 0 {
		o.SummaryWindowRadius = def.SummaryWindowRadius
	}
	if o.FullTextWindowRadius < 0 {
		o.FullTextWindowRadius = def.FullTextWindowRadius
	}
	if o.SummaryTopK <= 0 {
		o.SummaryTopK = def.SummaryTopK
	}
	if o.FullTextTopK <= 0 {
		o.FullTextTopK = def.FullTextTopK
	}
	switch o.FullTextBasis {
	case BasisAuto, BasisMax, BasisMin:
	default:
		o.FullTextBasis = BasisAuto
	}
	return o
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
