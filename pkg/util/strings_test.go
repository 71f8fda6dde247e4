package util

import "testing"

func TestNormalizeTicker(t *testing.T) {
	cases := map[string]string{
		" aapl ": "AAPL",
		"BRK.B":  "BRK-B",
		"abc":    "COR",
		"MSFT":   "MSFT",
	}
	for in, want := range cases {
		if got := NormalizeTicker(in); got != want {
			t.Fatalf("NormalizeTicker(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeTickerSet(t *testing.T) {
	got := NormalizeTickerSet([]string{"msft", " AAPL", "aapl", "", "brk.b"})
	want := []string{"AAPL", "BRK-B", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("unexpected length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDedupeKeepOrder(t *testing.T) {
	got := DedupeKeepOrder([]string{"msft", "aapl", "MSFT", ""})
	want := []string{"MSFT", "AAPL"}
	if len(got) != len(want) {
		t.Fatalf("unexpected length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("42", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
}
