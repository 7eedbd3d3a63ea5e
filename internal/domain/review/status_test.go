package review

import "testing"

func TestStatusCanTransition(t *testing.T) {
	if !StatusInProgress.CanTransition(StatusCompleted) {
		t.Fatalf("IN_PROGRESS -> COMPLETED should be legal")
	}
	if !StatusInProgress.CanTransition(StatusFailed) {
		t.Fatalf("IN_PROGRESS -> FAILED should be legal")
	}
	if StatusCompleted.CanTransition(StatusFailed) {
		t.Fatalf("terminal states are one-way")
	}
	if StatusFailed.CanTransition(StatusInProgress) {
		t.Fatalf("reviews never re-enter IN_PROGRESS")
	}
	if StatusInProgress.CanTransition(StatusInProgress) {
		t.Fatalf("IN_PROGRESS -> IN_PROGRESS is not a transition")
	}
}

func TestParseProvider(t *testing.T) {
	got, err := ParseProvider(" github ")
	if err != nil {
		t.Fatalf("ParseProvider() error = %v", err)
	}
	if got != ProviderGitHub {
		t.Fatalf("ParseProvider() = %q", got)
	}

	if _, err := ParseProvider("sourceforge"); err == nil {
		t.Fatalf("ParseProvider() expected error for unknown provider")
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"src/handlers/auth.py":  "python",
		"web/app.tsx":           "typescript",
		"cmd/serve.go":          "go",
		"README.md":             "",
		"Dockerfile":            "",
		"lib/legacy.PHP":        "",
		"deep/path/to/index.js": "javascript",
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Fatalf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSeverityFromConfidence(t *testing.T) {
	if got := SeverityFromConfidence(0.95); got != SeverityHigh {
		t.Fatalf("SeverityFromConfidence(0.95) = %q", got)
	}
	if got := SeverityFromConfidence(0.8); got != SeverityMedium {
		t.Fatalf("SeverityFromConfidence(0.8) = %q", got)
	}
}
