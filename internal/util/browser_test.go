package util

import (
	"slices"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	t.Parallel()

	const url = "http://localhost:20262"
	cases := map[string][]string{
		"windows": {"rundll32", "url.dll,FileProtocolHandler", url},
		"darwin":  {"open", url},
		"linux":   {"xdg-open", url},
	}
	for goos, want := range cases {
		if got := browserCommand(goos, url).Args; !slices.Equal(got, want) {
			t.Fatalf("%s: args = %v, want %v", goos, got, want)
		}
	}
}

func TestFallbackCommands(t *testing.T) {
	t.Parallel()

	if got := fallbackCommands("windows", "u"); len(got) != 1 || got[0].Args[0] != "explorer" {
		t.Fatalf("windows fallback = %v", got)
	}
	if got := fallbackCommands("linux", "u"); len(got) != 4 {
		t.Fatalf("linux fallback count = %d", len(got))
	}
	if got := fallbackCommands("darwin", "u"); got != nil {
		t.Fatalf("darwin fallback = %v", got)
	}
}
