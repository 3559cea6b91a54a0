package model

import (
	"encoding/json"
	"testing"
)

func TestNumber_UnmarshalVariants(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		value   float64
		present bool
		valid   bool
	}{
		{"number", `{"csf": 98.5}`, 98.5, true, true},
		{"numeric string", `{"csf": "98.5"}`, 98.5, true, true},
		{"padded string", `{"csf": " 100 "}`, 100, true, true},
		{"null", `{"csf": null}`, 0, true, false},
		{"non-numeric string", `{"csf": "n/a"}`, 0, true, false},
		{"wrong type", `{"csf": {"v": 1}}`, 0, true, false},
		{"absent", `{}`, 0, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec RawRecord
			if err := json.Unmarshal([]byte(tc.in), &rec); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if rec.Csf.Value != tc.value {
				t.Errorf("value = %v, want %v", rec.Csf.Value, tc.value)
			}
			if rec.Csf.Present != tc.present {
				t.Errorf("present = %v, want %v", rec.Csf.Present, tc.present)
			}
			if rec.Csf.Valid != tc.valid {
				t.Errorf("valid = %v, want %v", rec.Csf.Valid, tc.valid)
			}
		})
	}
}

func TestStr_UnmarshalVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Str
	}{
		{"string", `{"orgId": "ORG-1"}`, "ORG-1"},
		{"integer", `{"orgId": 4211}`, "4211"},
		{"float", `{"orgId": 42.5}`, "42.5"},
		{"null", `{"orgId": null}`, ""},
		{"array", `{"orgId": [1]}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec RawRecord
			if err := json.Unmarshal([]byte(tc.in), &rec); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if rec.OrgID != tc.want {
				t.Errorf("orgId = %q, want %q", rec.OrgID, tc.want)
			}
		})
	}
}

func TestRawRecord_FullDocument(t *testing.T) {
	doc := `{
		"cioName": "测试建设集团有限公司",
		"eqtName": "建筑业企业资质",
		"orgId": 10087,
		"cecId": "CEC-7",
		"csf": "96",
		"zzmxcxfArray": [
			{"zzmx": "施工总承包_建筑工程_壹级", "score": 95.5, "jcf": "90", "kf": null}
		]
	}`

	var rec RawRecord
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rec.CioName != "测试建设集团有限公司" {
		t.Errorf("cioName = %q", rec.CioName)
	}
	if rec.OrgID != "10087" {
		t.Errorf("orgId = %q, want 10087", rec.OrgID)
	}
	if !rec.Csf.Valid || rec.Csf.Value != 96 {
		t.Errorf("csf = %+v, want valid 96", rec.Csf)
	}
	if len(rec.Zzmxcxf) != 1 {
		t.Fatalf("zzmxcxfArray len = %d, want 1", len(rec.Zzmxcxf))
	}
	q := rec.Zzmxcxf[0]
	if !q.Jcf.Valid || q.Jcf.Value != 90 {
		t.Errorf("jcf = %+v, want valid 90", q.Jcf)
	}
	if !q.Kf.Present || q.Kf.Valid {
		t.Errorf("kf = %+v, want present invalid", q.Kf)
	}
	if q.Zxjf.Present {
		t.Errorf("zxjf = %+v, want absent", q.Zxjf)
	}
}
