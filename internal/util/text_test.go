package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"clean text unchanged":  {in: "semantic network", want: "semantic network"},
		"multibyte preserved":   {in: "café über", want: "café über"},
		"null bytes stripped":   {in: "a\x00b\x00c", want: "abc"},
		"invalid utf8 stripped": {in: "x" + string([]byte{0xfe, 0xff}) + "y", want: "xy"},
		"empty input":           {in: "", want: ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := SanitizePostgresText(tc.in); got != tc.want {
				t.Errorf("SanitizePostgresText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
