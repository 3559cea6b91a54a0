// Package normalize maps the API's heterogeneous raw records into
// canonical profiles. It is total over its input: any record with both
// core fields yields a profile with at least one qualification; records
// without them are dropped, never errored.
package normalize

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/credit-crawler/internal/model"
)

// DefaultBaselineScore is the company summary score assumed when the
// source omits one.
const DefaultBaselineScore = 100

// Result reports what Normalize did with one raw record.
type Result struct {
	Profile   *model.CompanyCreditProfile
	Dropped   bool
	Coercions int
}

// Normalizer converts raw records to canonical profiles.
type Normalizer struct {
	baseline float64

	// nowMillis feeds synthetic qualification identifiers; swapped in
	// tests.
	nowMillis func() int64
}

// New builds a Normalizer; baseline <= 0 selects the default.
func New(baseline float64) *Normalizer {
	if baseline <= 0 {
		baseline = DefaultBaselineScore
	}
	return &Normalizer{
		baseline:  baseline,
		nowMillis: func() int64 { return time.Now().UnixMilli() },
	}
}

// Normalize converts one raw record. Dropped records and every coerced
// field are logged at warning level for post-run data-quality audits.
func (n *Normalizer) Normalize(raw model.RawRecord) Result {
	if raw.CioName == "" || raw.EqtName == "" {
		zap.L().Warn("record dropped: missing core field",
			zap.String("cioName", raw.CioName),
			zap.String("eqtName", raw.EqtName),
		)
		return Result{Dropped: true}
	}

	var coercions int
	csf := n.baseline
	if raw.Csf.Valid {
		csf = raw.Csf.Value
	} else if raw.Csf.Present {
		coercions++
		zap.L().Warn("field coerced to baseline",
			zap.String("cioName", raw.CioName),
			zap.String("field", "csf"),
			zap.Float64("baseline", n.baseline),
		)
	}

	profile := &model.CompanyCreditProfile{
		CioName: raw.CioName,
		EqtName: raw.EqtName,
		OrgID:   string(raw.OrgID),
		CecID:   string(raw.CecID),
		Csf:     csf,
	}

	for _, q := range raw.Zzmxcxf {
		rec, c := n.normalizeQualification(raw.CioName, q, csf)
		coercions += c
		profile.Qualifications = append(profile.Qualifications, rec)
	}

	if len(profile.Qualifications) == 0 {
		profile.Qualifications = []model.QualificationRecord{n.syntheticQualification(profile)}
	}

	return Result{Profile: profile, Coercions: coercions}
}

func (n *Normalizer) normalizeQualification(cioName string, q model.RawQualification, companyCsf float64) (model.QualificationRecord, int) {
	var coercions int

	numeric := func(field string, v model.Number, fallback float64) float64 {
		if v.Valid {
			return v.Value
		}
		if v.Present {
			coercions++
			zap.L().Warn("field coerced to default",
				zap.String("cioName", cioName),
				zap.String("field", field),
				zap.Float64("default", fallback),
			)
		}
		return fallback
	}

	// Some source variants carry the sub-score under "csf" instead of
	// "score"; prefer score, then the entry's own csf, then the company
	// summary.
	score := companyCsf
	switch {
	case q.Score.Valid:
		score = q.Score.Value
	case q.Csf.Valid:
		score = q.Csf.Value
	case q.Score.Present || q.Csf.Present:
		coercions++
		zap.L().Warn("field coerced to company score",
			zap.String("cioName", cioName),
			zap.String("field", "score"),
			zap.Float64("companyCsf", companyCsf),
		)
	}

	return model.QualificationRecord{
		Zzmx:  string(q.Zzmx),
		Score: score,
		Jcf:   numeric("jcf", q.Jcf, 0),
		Zxjf:  numeric("zxjf", q.Zxjf, 0),
		Kf:    numeric("kf", q.Kf, 0),
		Cxdj:  string(q.Cxdj),
		EqlID: string(q.EqlID),
	}, coercions
}

// syntheticQualification covers companies whose detail list is empty:
// one entry mirroring the summary score, with an identifier derived
// from orgId, cecId, or the clock so exports stay unique.
func (n *Normalizer) syntheticQualification(p *model.CompanyCreditProfile) model.QualificationRecord {
	id := p.OrgID
	if id == "" {
		id = p.CecID
	}
	if id == "" {
		id = "syn-" + strconv.FormatInt(n.nowMillis(), 10)
	}
	return model.QualificationRecord{
		Score: p.Csf,
		EqlID: id,
	}
}
