package validators

import "testing"

func TestTrimToLen(t *testing.T) {
	if got := TrimToLen("  12 Garden Lane  ", MaxAddressLen); got != "12 Garden Lane" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := TrimToLen("rose", 0); got != "rose" {
		t.Fatalf("zero maxLen must not truncate, got %q", got)
	}
	if got := TrimToLen("abcdef", 3); got != "abc" {
		t.Fatalf("expected capped value, got %q", got)
	}
	if got := TrimToLen("   ", MaxNameLen); got != "" {
		t.Fatalf("whitespace-only input must collapse, got %q", got)
	}
}
