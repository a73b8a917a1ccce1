package language

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"chinese", "zh"},
		{"Haitian Creole", "ht"},
		{"pt-BR", "pt"},
		{"auto", Auto},
		{"", Auto},
		{"not-a-language!", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("ja"); got != "Japanese" {
		t.Fatalf("DisplayName(ja) = %q", got)
	}
	if got := DisplayName("auto"); got != "Unknown" {
		t.Fatalf("DisplayName(auto) = %q", got)
	}
}

func TestMajorityVote(t *testing.T) {
	if got := MajorityVote([]string{"japanese", "ja", "en"}); got != "ja" {
		t.Fatalf("majority = %q, want ja", got)
	}
	// Ties resolve toward the earliest detection.
	if got := MajorityVote([]string{"en", "ja"}); got != "en" {
		t.Fatalf("tie = %q, want en", got)
	}
	if got := MajorityVote(nil); got != "" {
		t.Fatalf("empty = %q, want empty", got)
	}
}
