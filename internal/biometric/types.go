package biometric

type QualityMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Test  bool    `json:"test"`
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectedFace is one face returned by the detect+analyze+templify pipeline.
// Template is opaque and must not be persisted or logged.
type DetectedFace struct {
	Template       string          `json:"template"`
	QualityMetrics []QualityMetric `json:"quality_metrics"`
	BoundingBox    *BoundingBox    `json:"bounding_box,omitempty"`
}

// QualityPassed is true when every vendor quality test passed.
func (f DetectedFace) QualityPassed() bool {
	for _, m := range f.QualityMetrics {
		if !m.Test {
			return false
		}
	}
	return true
}

// FailedMetrics lists the names of quality tests that did not pass.
func (f DetectedFace) FailedMetrics() []string {
	var failed []string
	for _, m := range f.QualityMetrics {
		if !m.Test {
			failed = append(failed, m.Name)
		}
	}
	return failed
}

// Candidate is a gallery member proposed as a match.
type Candidate struct {
	TemplateID string  `json:"template_id"`
	Score      float64 `json:"score"`
}

type IdentifyParams struct {
	Template            string
	GalleryID           string
	CandidateListLength int
	MinimumScore        float64
}

type processRequest struct {
	Image       string   `json:"image"`
	Processings []string `json:"processings"`
}

type identifyRequest struct {
	Template            string  `json:"template"`
	GalleryID           string  `json:"gallery_id"`
	CandidateListLength int     `json:"candidate_list_length"`
	MinimumScore        float64 `json:"minimum_score"`
}

type enrollRequest struct {
	Template string `json:"template"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}
