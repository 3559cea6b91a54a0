package model

// QualificationRecord is one normalized qualification line. Numeric
// fields are always populated: absent or unusable source values are
// coerced to their defaults by the normalizer.
type QualificationRecord struct {
	Zzmx  string  `json:"zzmx"`
	Score float64 `json:"score"`
	Jcf   float64 `json:"jcf"`
	Zxjf  float64 `json:"zxjf"`
	Kf    float64 `json:"kf"`
	Cxdj  string  `json:"cxdj"`
	EqlID string  `json:"eqlId"`
}

// CompanyCreditProfile is the canonical record handed to the exporter.
// Qualifications is never empty: companies with no qualification detail
// get a single synthetic entry mirroring their summary score.
type CompanyCreditProfile struct {
	CioName        string                `json:"cioName"`
	EqtName        string                `json:"eqtName"`
	OrgID          string                `json:"orgId"`
	CecID          string                `json:"cecId"`
	Csf            float64               `json:"csf"`
	Qualifications []QualificationRecord `json:"qualifications"`
}
