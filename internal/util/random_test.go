package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomHex(t *testing.T) {
	hex := GenerateRandomHex(16)
	if len(hex) != 16 {
		t.Errorf("length = %d, want 16", len(hex))
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("non-hex character %q in %q", c, hex)
		}
	}

	if GenerateRandomHex(0) != "" {
		t.Error("zero length should produce empty string")
	}
	if GenerateRandomHex(-1) != "" {
		t.Error("negative length should produce empty string")
	}
}

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID("x_", 8)
	if !strings.HasPrefix(id, "x_") {
		t.Errorf("missing prefix: %q", id)
	}
	if len(id) != 10 {
		t.Errorf("length = %d, want 10", len(id))
	}
}

func TestGenerateUserID(t *testing.T) {
	id := GenerateUserID()
	if !strings.HasPrefix(id, "u_") {
		t.Errorf("missing u_ prefix: %q", id)
	}
	if len(id) != 34 {
		t.Errorf("length = %d, want 34", len(id))
	}
	if id == GenerateUserID() {
		t.Error("consecutive IDs should differ")
	}
}

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"ON", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}
	for _, c := range cases {
		t.Setenv("INTERVIEWPIPE_TEST_BOOL", c.value)
		if got := ParseBoolEnv("INTERVIEWPIPE_TEST_BOOL", c.def); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.value, c.def, got, c.want)
		}
	}
}
