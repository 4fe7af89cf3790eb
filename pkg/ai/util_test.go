package ai

import (
	"testing"
)

type themeSummary struct {
	Theme string `json:"theme"`
	Count int    `json:"count,omitempty"`
}

func decodeTheme(t *testing.T, input string) themeSummary {
	t.Helper()
	var got themeSummary
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible(%q) error = %v", input, err)
	}
	return got
}

func TestUnmarshalFlexibleCleanInput(t *testing.T) {
	got := decodeTheme(t, `{"theme":"climate","count":3}`)
	if got.Theme != "climate" || got.Count != 3 {
		t.Fatalf("got %+v, want theme=climate count=3", got)
	}
}

func TestUnmarshalFlexibleRepairsBrokenJSON(t *testing.T) {
	for name, input := range map[string]string{
		"unquoted keys":        `{theme: 'climate'}`,
		"trailing comma":       `{"theme":"climate",}`,
		"unterminated object":  `{"theme":"climate`,
		"doubled brace":        "{\n{\n  \"theme\": \"climate\"\n}\n",
		"doubled brace inline": `{ { "theme": "climate" }`,
	} {
		t.Run(name, func(t *testing.T) {
			if got := decodeTheme(t, input); got.Theme != "climate" {
				t.Fatalf("theme = %q, want climate", got.Theme)
			}
		})
	}
}

func TestUnmarshalFlexibleDoubleEncoded(t *testing.T) {
	t.Run("stringified broken object", func(t *testing.T) {
		if got := decodeTheme(t, `"{theme: 'climate'}"`); got.Theme != "climate" {
			t.Fatalf("theme = %q, want climate", got.Theme)
		}
	})

	t.Run("stringified object with lists", func(t *testing.T) {
		var got struct {
			Themes  []string `json:"themes"`
			Bridges []string `json:"bridges"`
		}
		input := `"{\n  \"themes\": [\"energy\", \"policy (long form, e.g. regulation)\"],\n  \"bridges\": []\n  }\n"`
		if err := UnmarshalFlexible(input, &got); err != nil {
			t.Fatalf("UnmarshalFlexible() error = %v", err)
		}
		if len(got.Themes) != 2 || got.Themes[1] != "policy (long form, e.g. regulation)" {
			t.Fatalf("themes = %v, want two entries with parenthetical preserved", got.Themes)
		}
		if len(got.Bridges) != 0 {
			t.Fatalf("bridges = %v, want empty", got.Bridges)
		}
	})
}

func TestUnmarshalFlexibleArray(t *testing.T) {
	var got []themeSummary
	if err := UnmarshalFlexible(`[{theme:'energy'},{theme:'policy',}]`, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Theme != "energy" || got[1].Theme != "policy" {
		t.Fatalf("got %+v, want themes energy,policy", got)
	}
}

func TestUnmarshalFlexibleUnrecoverable(t *testing.T) {
	var got themeSummary
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatal("expected error for non-JSON input")
	}
}
