package user

import "testing"

func TestValidateUsername(t *testing.T) {
	isValidTests := []struct {
		username string
		want     bool
	}{
		{"", false}, // too short (< 1)
		{"selene", true},
		{"username", true},
		{"username1", false}, // invalid chars (numbers)
		{"Username", false},  // invalid chars (uppercase)
		{"abcdefghijklmnopqrstuvwxyzabcdef", true},   // 32
		{"abcdefghijklmnopqrstuvwxyzabcdefg", false}, // 33
	}
	for i, test := range isValidTests {
		err := validateUsername(test.username)
		got := err == nil
		if test.want != got {
			t.Errorf("Test %v: wanted username %q to be valid: %v, got %v", i, test.username, test.want, got)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	isValidTests := []struct {
		password string
		want     bool
	}{
		{"", false},
		{"selene", false}, // too short
		{"password", true},
		{"password123", true},
	}
	for i, test := range isValidTests {
		err := validatePassword(test.password)
		got := err == nil
		if test.want != got {
			t.Errorf("Test %v: wanted password to be valid: %v, got %v", i, test.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("selene", "password123"); err != nil {
		t.Errorf("unwanted error: %v", err)
	}
	if err := Validate("", "password123"); err == nil {
		t.Errorf("wanted error for empty username")
	}
	if err := Validate("selene", "short"); err == nil {
		t.Errorf("wanted error for short password")
	}
}
