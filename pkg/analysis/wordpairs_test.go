package analysis

import (
	"errors"
	"reflect"
	"testing"
)

func TestWordPairs(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	rows, err := a.WordPairs(
		[]string{"cats dogs birds", "cats dogs"},
		[]string{"cats fish"},
	)
	if err != nil {
		t.Fatalf("WordPairs() error = %v", err)
	}

	want := []WordPairRow{
		{Word1: "cat", Word2: "dog", CountA: 2, CountB: 0, Total: 2,
			NormalizedA: 100, NormalizedB: 0, TotalNormalized: 100, Difference: 100},
		{Word1: "bird", Word2: "cat", CountA: 1, CountB: 0, Total: 1,
			NormalizedA: 50, NormalizedB: 0, TotalNormalized: 50, Difference: 50},
		{Word1: "bird", Word2: "dog", CountA: 1, CountB: 0, Total: 1,
			NormalizedA: 50, NormalizedB: 0, TotalNormalized: 50, Difference: 50},
		{Word1: "cat", Word2: "fish", CountA: 0, CountB: 1, Total: 1,
			NormalizedA: 0, NormalizedB: 100, TotalNormalized: 50, Difference: -100},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %+v, want %+v", rows, want)
	}
}

func TestWordPairsOneSidedGroup(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	rows, err := a.WordPairs(nil, []string{"cats fish"})
	if err != nil {
		t.Fatalf("WordPairs() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].NormalizedA != 0 || rows[0].NormalizedB != 100 {
		t.Errorf("row = %+v, want normalized 0/100", rows[0])
	}
}

func TestWordPairsRequiresTwoGroups(t *testing.T) {
	a, err := NewAnalyzer(NewAnalyzerParams{GroupNames: []string{"Solo"}})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	if _, err := a.WordPairs([]string{"aa bb"}, []string{"cc dd"}); !errors.Is(err, ErrTwoGroupsRequired) {
		t.Errorf("WordPairs() error = %v, want ErrTwoGroupsRequired", err)
	}
}

func TestFlattenWordPairs(t *testing.T) {
	a := newTwoGroupAnalyzer(t)
	rows, err := a.WordPairs(
		[]string{"cats dogs"},
		[]string{"cats dogs"},
	)
	if err != nil {
		t.Fatalf("WordPairs() error = %v", err)
	}

	flat := a.FlattenWordPairs(rows)
	if len(flat) != 1 {
		t.Fatalf("len(flat) = %d, want 1", len(flat))
	}
	row := flat[0]
	if row["word_1"] != "cat" || row["word_2"] != "dog" {
		t.Errorf("pair = %v/%v, want cat/dog", row["word_1"], row["word_2"])
	}
	if row["group_a_connections"] != 1 || row["group_b_connections"] != 1 {
		t.Errorf("connections = %v/%v, want 1/1",
			row["group_a_connections"], row["group_b_connections"])
	}
	if row["total_connections"] != 2 || row["total_normalized"] != 100.0 {
		t.Errorf("totals = %v/%v, want 2/100",
			row["total_connections"], row["total_normalized"])
	}
	if row["difference"] != 0.0 {
		t.Errorf("difference = %v, want 0", row["difference"])
	}
}
