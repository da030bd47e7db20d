package internal

import "testing"

func TestNewNumericCodeLengthAndCharset(t *testing.T) {
	for _, digits := range []int{4, 6, 10} {
		code, err := NewNumericCode(digits)
		if err != nil {
			t.Fatalf("digits=%d: %v", digits, err)
		}
		if len(code) != digits {
			t.Errorf("digits=%d: got %q", digits, code)
		}
		for i := 0; i < len(code); i++ {
			if code[i] < '0' || code[i] > '9' {
				t.Errorf("digits=%d: non-digit in %q", digits, code)
				break
			}
		}
	}
}

func TestNewNumericCodeBounds(t *testing.T) {
	for _, digits := range []int{0, 3, 11, -1} {
		if _, err := NewNumericCode(digits); err == nil {
			t.Errorf("digits=%d: expected an error", digits)
		}
	}
}

func TestNewJTIUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		jti := NewJTI()
		if jti == "" {
			t.Fatal("empty jti")
		}
		if seen[jti] {
			t.Fatalf("duplicate jti %q", jti)
		}
		seen[jti] = true
	}
}
