package prescription

import (
	"encoding/json"
	"testing"
)

func validNew() NewPrescription {
	return NewPrescription{
		DoctorFirstName: "Gregory",
		DoctorLastName:  "House",
		Name:            "Amoxicillin",
		Dosage:          20,
	}
}

func TestNewPrescription_StatusIgnored(t *testing.T) {
	var in NewPrescription
	body := `{"doctorFirstName":"Gregory","doctorLastName":"House","name":"Ibuprofen","dosage":5,"status":"APPROVED"}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p := in.Build(); p.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", p.Status)
	}
}

func TestNewPrescription_Validate(t *testing.T) {
	if err := validNew().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := validNew()
	in.Dosage = 128
	if err := in.Validate(); err == nil {
		t.Error("expected dosage error")
	}
	in = validNew()
	in.DoctorFirstName = ""
	if err := in.Validate(); err == nil {
		t.Error("expected doctor name error")
	}
}

func TestPatch_DosageOnlyLeavesNameUnchanged(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"dosage":40}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rx := validNew().Build()
	p.Apply(rx)
	if rx.Dosage != 40 || rx.Name != "Amoxicillin" {
		t.Errorf("unexpected result %+v", rx)
	}
}

func TestPatch_Validate(t *testing.T) {
	tests := map[string]bool{
		`{}`:                true,
		`{"name":"Zyrtec"}`: true,
		`{"name":""}`:       false,
		`{"name":null}`:     false,
		`{"dosage":0}`:      false,
		`{"dosage":127}`:    true,
	}
	for body, ok := range tests {
		var p Patch
		json.Unmarshal([]byte(body), &p)
		if err := p.Validate(); (err == nil) != ok {
			t.Errorf("%s: got err=%v, want ok=%v", body, err, ok)
		}
	}
}

func TestPatch_Marshal(t *testing.T) {
	var p Patch
	json.Unmarshal([]byte(`{"dosage":12}`), &p)
	out, _ := json.Marshal(p)
	if string(out) != `{"dosage":12}` {
		t.Errorf("unexpected encoding %s", out)
	}
}
