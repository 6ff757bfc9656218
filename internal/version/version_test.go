package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != "dev" {
		t.Errorf("Version = %q, want %q (unstamped build)", info.Version, "dev")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q, want %q", info.Platform, runtime.GOOS+"/"+runtime.GOARCH)
	}
}

func TestInfoString(t *testing.T) {
	s := Info{
		Version:   "v1.2.3",
		Commit:    "abc1234",
		BuildDate: "2026-08-30",
		GoVersion: "go1.23.0",
		Platform:  "linux/amd64",
	}.String()

	for _, part := range []string{"pagesnap", "v1.2.3", "abc1234", "2026-08-30", "linux/amd64"} {
		if !strings.Contains(s, part) {
			t.Errorf("String() = %q, missing %q", s, part)
		}
	}
}
