package credential

import "testing"

func TestGenerateOTPFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("generate otp: %v", err)
		}
		if len(code) != OTPLength {
			t.Fatalf("expected %d digits, got %q", OTPLength, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in otp %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("otp generation produced a constant value")
	}
}

func TestGenerateResetTokenFormat(t *testing.T) {
	a, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("generate reset token: %v", err)
	}
	if len(a) != ResetTokenBytes*2 {
		t.Fatalf("expected %d hex chars, got %d", ResetTokenBytes*2, len(a))
	}
	for _, r := range a {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("non-hex rune %q in token", r)
		}
	}

	b, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("generate reset token: %v", err)
	}
	if a == b {
		t.Fatal("two reset tokens collided")
	}
}
