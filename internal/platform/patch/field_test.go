package patch

import (
	"encoding/json"
	"testing"
)

type doc struct {
	Name   Field[string] `json:"name"`
	Dosage Field[int]    `json:"dosage"`
}

func (d doc) MarshalJSON() ([]byte, error) {
	out := Doc{}
	Put(out, "name", d.Name)
	Put(out, "dosage", d.Dosage)
	return json.Marshal(out)
}

func TestField_Presence(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		nameSet  bool
		nameNull bool
		dosage   Field[int]
	}{
		{"absent", `{}`, false, false, Field[int]{}},
		{"value", `{"name":"Ibuprofen","dosage":5}`, true, false, Field[int]{Set: true, Value: 5}},
		{"null", `{"name":null}`, true, true, Field[int]{}},
		{"empty string", `{"name":""}`, true, false, Field[int]{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d doc
			if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if d.Name.Set != tt.nameSet || d.Name.Null != tt.nameNull {
				t.Errorf("name presence = %+v", d.Name)
			}
			if d.Dosage != tt.dosage {
				t.Errorf("dosage = %+v, want %+v", d.Dosage, tt.dosage)
			}
		})
	}
}

func TestField_TypeMismatch(t *testing.T) {
	var d doc
	if err := json.Unmarshal([]byte(`{"dosage":"ten"}`), &d); err == nil {
		t.Error("expected error for wrong type")
	}
}

func TestField_ApplyTo(t *testing.T) {
	name := "Amoxicillin"
	Field[string]{}.ApplyTo(&name)
	if name != "Amoxicillin" {
		t.Error("absent field must not change the target")
	}
	Field[string]{Set: true, Null: true}.ApplyTo(&name)
	if name != "Amoxicillin" {
		t.Error("null field must not be applied")
	}
	Of("Ibuprofen").ApplyTo(&name)
	if name != "Ibuprofen" {
		t.Errorf("expected value to be applied, got %s", name)
	}
}

func TestField_Required(t *testing.T) {
	if err := (Field[string]{Set: true, Null: true}).Required("name"); err == nil || err.Error() != "name cannot be cleared" {
		t.Errorf("unexpected error %v", err)
	}
	if err := (Field[string]{}).Required("name"); err != nil {
		t.Errorf("absent field is fine, got %v", err)
	}
}

func TestDoc_KeepsAbsentKeysAbsent(t *testing.T) {
	in := `{"dosage":3}`
	var d doc
	if err := json.Unmarshal([]byte(in), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Errorf("expected %s, got %s", in, out)
	}

	var again doc
	json.Unmarshal(out, &again)
	if again.Name.Set {
		t.Error("name must stay absent after a round trip")
	}
}

func TestDoc_KeepsNull(t *testing.T) {
	var d doc
	json.Unmarshal([]byte(`{"name":null}`), &d)
	out, _ := json.Marshal(d)
	if string(out) != `{"name":null}` {
		t.Errorf("expected explicit null to survive, got %s", out)
	}
}
