package identifier

import "testing"

func TestParseAndValidate(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"311220190006", true},
		{"1234567890", true},
		{"24700007", true},
		{"1334567890", false},
		{"1234567892", false},
		{"14567894", true},
		{"14567895", false},
		{"73211009", true}, // diabetes mellitus
		{"123", false},     // too short
	}
	for _, tt := range tests {
		_, err := ParseAndValidate(tt.s)
		got := err == nil
		if got != tt.want {
			t.Errorf("ParseAndValidate(%q): got valid=%v, want %v (err=%v)", tt.s, got, tt.want, err)
		}
	}
}

func TestIsValid(t *testing.T) {
	id, err := Parse("73211009")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !id.IsValid() {
		t.Errorf("expected %s to be a valid SCTID", id)
	}
}

func TestIsConcept(t *testing.T) {
	id, _ := Parse("73211009")
	if !id.IsConcept() {
		t.Errorf("expected %s to be a concept identifier", id)
	}
}
