package utils

import "testing"

func TestComputeDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"ABC", "abc", 0},
		{"kitten", "sitting", 3},
		{"", "xyz", 3},
	}
	for _, tc := range cases {
		if got := ComputeDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("ComputeDistance(%q, %q) = %d, expected %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFuzzyMatch(t *testing.T) {
	if !FuzzyMatch("pme", "P1.M1.E1") {
		t.Error("ordered subsequence should match")
	}
	if FuzzyMatch("emp", "P1.M1.E1") {
		t.Error("out-of-order characters should not match")
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"P1.M1.E1.T001", "P1.M1.E1.T002", "B001"}
	got := Suggest("P1.M1.E1.T01", candidates, 2)
	if len(got) == 0 || got[0] != "P1.M1.E1.T001" {
		t.Errorf("Suggest = %v", got)
	}
	if len(got) > 2 {
		t.Errorf("limit ignored: %v", got)
	}
}
