package version

import (
	"strings"
	"testing"
)

// stash clears the ldflags variables for a test and restores them after.
// The build-info fallback still sees the test binary's real VCS stamps,
// so assertions stay loose where that can bleed in.
func stash(t *testing.T) {
	t.Helper()
	v, c, b, bt, gv := Version, GitCommit, GitBranch, BuildTime, GoVersion
	Version, GitCommit, GitBranch, BuildTime, GoVersion = "dev", "", "", "", ""
	t.Cleanup(func() {
		Version, GitCommit, GitBranch, BuildTime, GoVersion = v, c, b, bt, gv
	})
}

func TestGetVersionInfoDev(t *testing.T) {
	stash(t)

	info := GetVersionInfo()
	if info.Version != "dev" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev is not a release")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should come from build info when unset")
	}
}

func TestGetVersionInfoFromLdflags(t *testing.T) {
	stash(t)
	Version = "1.4.0"
	GitCommit = "abc1234"
	GitBranch = "main"
	BuildTime = "2026-01-15T10:30:00Z"
	GoVersion = "go1.26.0"

	info := GetVersionInfo()
	if !info.IsRelease {
		t.Error("1.4.0 is a release")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("ldflags commit must win, got %q", info.GitCommit)
	}
	if info.GoVersion != "go1.26.0" {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if info.BuildDate.Year() != 2026 || info.BuildDate.Month() != 1 {
		t.Errorf("BuildDate = %v", info.BuildDate)
	}
}

func TestGetVersionInfoDirtyString(t *testing.T) {
	stash(t)
	Version = "1.4.0-dirty"

	if GetVersionInfo().IsRelease {
		t.Error("a dirty version string is not a release")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("short input must pass through, got %q", got)
	}
}

func TestGetShortVersion(t *testing.T) {
	stash(t)
	Version = "1.4.0"
	GitCommit = "abc1234"

	sv := GetShortVersion()
	if !strings.HasPrefix(sv, "1.4.0-abc1234") {
		t.Errorf("GetShortVersion = %q", sv)
	}
}

func TestGetShortVersionDev(t *testing.T) {
	stash(t)

	if sv := GetShortVersion(); !strings.Contains(sv, "dev") {
		t.Errorf("GetShortVersion = %q", sv)
	}
}

func TestGetFullVersion(t *testing.T) {
	stash(t)
	Version = "1.4.0"
	GitCommit = "abc1234"
	GitBranch = "main"
	BuildTime = "2026-01-15T10:30:00Z"

	fv := GetFullVersion()
	if !strings.Contains(fv, "1.4.0") || !strings.Contains(fv, "abc1234") {
		t.Errorf("GetFullVersion = %q", fv)
	}
	if strings.Contains(fv, "main") {
		t.Errorf("default branch must not render, got %q", fv)
	}
	if !strings.Contains(fv, "built 2026-01-15") {
		t.Errorf("build date must render, got %q", fv)
	}
}

func TestGetFullVersionFeatureBranch(t *testing.T) {
	stash(t)
	Version = "1.4.0"
	GitCommit = "abc1234"
	GitBranch = "feature/retry-budget"

	if fv := GetFullVersion(); !strings.Contains(fv, "feature/retry-budget") {
		t.Errorf("feature branch must render, got %q", fv)
	}
}

func TestGetFullVersionBare(t *testing.T) {
	stash(t)

	if fv := GetFullVersion(); !strings.HasPrefix(fv, "dev") {
		t.Errorf("GetFullVersion = %q", fv)
	}
}
