package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		data    string
		unique  string
		payload string
	}{
		{"\\fprod|p1", "prod", "p1"},
		{"\\fqty|5 p1", "qty", "5 p1"},
		{"\\fcart", "cart", ""},
		{"\\fcart|", "cart", ""},
		{"rm|line-1", "rm", "line-1"},
		{"", "", ""},
	}

	for _, tc := range cases {
		unique, payload := Parse(&tele.Callback{Data: tc.data})
		if unique != tc.unique || payload != tc.payload {
			t.Errorf("Parse(%q) = (%q, %q), expected (%q, %q)",
				tc.data, unique, payload, tc.unique, tc.payload)
		}
	}
}

func TestParseNil(t *testing.T) {
	unique, payload := Parse(nil)
	if unique != "" || payload != "" {
		t.Fatalf("Parse(nil) = (%q, %q), expected empty", unique, payload)
	}
}
