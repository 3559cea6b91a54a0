package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a numeric field as the credit API actually serves it: a JSON
// number, a numeric string, null, absent, or occasionally something else
// entirely. Present and Valid let the normalizer tell "absent" apart from
// "present but unusable" so coercions can be logged.
type Number struct {
	Value   float64
	Present bool
	Valid   bool
}

// UnmarshalJSON never fails; unusable values yield Present=true, Valid=false.
func (n *Number) UnmarshalJSON(b []byte) error {
	n.Present = true
	n.Valid = false
	n.Value = 0

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		n.Value = f
		n.Valid = true
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	n.Value = f
	n.Valid = true
	return nil
}

// MarshalJSON emits the numeric value, or null when the field never
// held one.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Str is a string field tolerant of the API's habit of serving
// identifiers as numbers. Absent, null, and non-scalar values all
// decode to the empty string.
type Str string

// UnmarshalJSON never fails.
func (s *Str) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			*s = ""
			return nil
		}
		*s = Str(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*s = ""
		return nil
	}
	*s = Str(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// RawRecord is one company entry as decrypted from a page payload.
// Only CioName and EqtName are required; everything else is optional
// and type-unstable at the source.
type RawRecord struct {
	CioName string             `json:"cioName"`
	EqtName string             `json:"eqtName"`
	OrgID   Str                `json:"orgId"`
	CecID   Str                `json:"cecId"`
	Csf     Number             `json:"csf"`
	Zzmxcxf []RawQualification `json:"zzmxcxfArray"`
}

// RawQualification is one qualification fragment under a RawRecord.
// Some source variants carry the sub-score under "score", others under
// "csf"; both are kept and the normalizer picks.
type RawQualification struct {
	Zzmx  Str    `json:"zzmx"`
	Score Number `json:"score"`
	Csf   Number `json:"csf"`
	Jcf   Number `json:"jcf"`
	Zxjf  Number `json:"zxjf"`
	Kf    Number `json:"kf"`
	Cxdj  Str    `json:"cxdj"`
	EqlID Str    `json:"eqlId"`
}
