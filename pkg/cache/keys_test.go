package cache

import (
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "assess:fraud:ab12", false},
		{"valid with dots", "assess.v1.loan", false},
		{"empty key", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"control char null", "key\x00value", true},
		{"control char newline", "key\nvalue", true},
		{"leading space", " key", true},
		{"trailing space", "key ", true},
		{"unicode control", "key\x7fvalue", true},
		{"valid unicode", "café", false},
		{"exactly 250 chars", strings.Repeat("a", 250), false},
		{"251 chars", strings.Repeat("a", 251), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestKeyPattern_Build(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		separator string
		parts     []string
		expected  string
	}{
		{"no parts", "assess", ":", nil, "assess"},
		{"two parts", "assess", ":", []string{"fraud", "ab"}, "assess:fraud:ab"},
		{"default separator", "assess", "", []string{"loan"}, "assess:loan"},
		{"custom separator", "assess", "/", []string{"chat"}, "assess/chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp := NewKeyPattern(tt.prefix, tt.separator)
			if got := kp.Build(tt.parts...); got != tt.expected {
				t.Errorf("Build() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKeyPattern_Digest(t *testing.T) {
	kp := NewKeyPattern("assess", ":")

	a := kp.Digest("fraud", "You won a lottery, send your OTP")
	b := kp.Digest("fraud", "You won a lottery, send your OTP")
	c := kp.Digest("loan", "You won a lottery, send your OTP")

	if a != b {
		t.Errorf("Digest should be deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Error("Digest should differ by kind")
	}
	if !strings.HasPrefix(a, "assess:fraud:") {
		t.Errorf("Unexpected prefix in %q", a)
	}
	if err := ValidateKey(a); err != nil {
		t.Errorf("Digest key should be valid: %v", err)
	}
}
