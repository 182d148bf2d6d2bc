package explore

import (
	"encoding/json"
	"testing"
)

func TestExpectation_Wire(t *testing.T) {
	tests := []struct {
		value Expectation
		wire  string
	}{
		{ExpectYes, "0"},
		{ExpectNo, "1"},
		{ExpectUnclear, "null"},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.value)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", tt.value, err)
		}
		if string(data) != tt.wire {
			t.Errorf("Marshal(%v) = %s, want %s", tt.value, data, tt.wire)
		}

		var back Expectation
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if back != tt.value {
			t.Errorf("Unmarshal(%s) = %v, want %v", data, back, tt.value)
		}
	}
}

func TestExpectation_UnmarshalRejectsGarbage(t *testing.T) {
	var e Expectation
	for _, wire := range []string{`2`, `"yes"`, `-1`} {
		if err := json.Unmarshal([]byte(wire), &e); err == nil {
			t.Errorf("Unmarshal(%s) expected error, got nil", wire)
		}
	}
}

func TestParseExpectation(t *testing.T) {
	tests := []struct {
		in      string
		want    Expectation
		wantErr bool
	}{
		{"yes", ExpectYes, false},
		{"no", ExpectNo, false},
		{"unclear", ExpectUnclear, false},
		{"", ExpectUnclear, false},
		{"maybe", ExpectUnclear, true},
	}

	for _, tt := range tests {
		got, err := ParseExpectation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExpectation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseExpectation(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExpectation_String(t *testing.T) {
	if ExpectYes.String() != "yes" || ExpectNo.String() != "no" || ExpectUnclear.String() != "unclear" {
		t.Error("String() does not match the CLI vocabulary")
	}
}
