package utils

import "testing"

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"plain", "abc", abc},
		{"surrounding whitespace ignored", "  abc\n", abc},
		{"blank", "   ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.payload); got != tt.want {
				t.Errorf("Fingerprint(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestNormalizeSeries(t *testing.T) {
	if got := NormalizeSeries("  f001-00012345 "); got != "F001-00012345" {
		t.Errorf("NormalizeSeries() = %q", got)
	}
	if got := NormalizeTaxID(" 20100070970 "); got != "20100070970" {
		t.Errorf("NormalizeTaxID() = %q", got)
	}
}
