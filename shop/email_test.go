package shop

import "testing"

func TestValidEmail(t *testing.T) {
	cases := []struct {
		email string
		valid bool
	}{
		{"ann@example.com", true},
		{"a@b.co", true},
		{"first.last@sub.domain.org", true},
		{"", false},
		{"plain", false},
		{"@example.com", false},
		{"ann@", false},
		{"ann@example", false},
		{"ann@@example.com", false},
		{"a@b@c.com", false},
		{"ann@.", true},
	}

	for _, tc := range cases {
		if got := ValidEmail(tc.email); got != tc.valid {
			t.Errorf("ValidEmail(%q) = %v, expected %v", tc.email, got, tc.valid)
		}
	}
}
