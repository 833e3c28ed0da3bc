package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"0300 1234567", "+923001234567"},
		{"+92 300 1234567", "+923001234567"},
		{"  +923001234567  ", "+923001234567"},
		{"not a number", "not a number"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("0300 1234567") {
		t.Fatal("expected local mobile number to be valid")
	}
	if IsValid("12345") {
		t.Fatal("expected short number to be invalid")
	}
	if IsValid("") {
		t.Fatal("expected empty input to be invalid")
	}
}
