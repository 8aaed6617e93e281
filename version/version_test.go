package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	oldV, oldC, oldT := Version, GitCommit, BuildTime
	defer func() { Version, GitCommit, BuildTime = oldV, oldC, oldT }()

	Version, GitCommit, BuildTime = "1.4.0", "abc1234", "2025-06-01T00:00:00Z"
	if got := Info(); got != "1.4.0 (abc1234, 2025-06-01T00:00:00Z)" {
		t.Fatalf("Info = %q", got)
	}
	if Short() != "1.4.0" {
		t.Fatalf("Short = %q", Short())
	}
	if !strings.HasPrefix(Full(), Info()+"\n  Go: ") {
		t.Fatalf("Full = %q", Full())
	}
}
