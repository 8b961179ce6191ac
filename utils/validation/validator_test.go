package validation

import "testing"

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2026 || int(d.Month()) != 3 || d.Day() != 15 {
		t.Errorf("parsed %v, want 2026-03-15", d)
	}

	for _, bad := range []string{"15-03-2026", "2026/03/15", "2026-13-01", "yesterday", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) succeeded, want error", bad)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "student.one+tag@school.example.org"}
	for _, e := range valid {
		if !ValidateEmail(e) {
			t.Errorf("ValidateEmail(%q) = false, want true", e)
		}
	}

	invalid := []string{"", "no-at-sign", "@missing.local", "spaces in@mail.com"}
	for _, e := range invalid {
		if ValidateEmail(e) {
			t.Errorf("ValidateEmail(%q) = true, want false", e)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if ok, _ := ValidatePassword("longenough1"); !ok {
		t.Error("expected valid password to pass")
	}
	if ok, _ := ValidatePassword("short"); ok {
		t.Error("expected short password to fail")
	}
	if ok, _ := ValidatePassword("12345678"); ok {
		t.Error("expected letterless password to fail")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  "); got != "helloworld" {
		t.Errorf("SanitizeString = %q, want %q", got, "helloworld")
	}
}
