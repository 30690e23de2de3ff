package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestResolveBuild(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "4b825dc642cb"},
	}
	if got := resolveBuild("$Id$", settings); got != "4b825dc642cb" {
		t.Errorf("got %q", got)
	}
	dirty := append(settings, debug.BuildSetting{Key: "vcs.modified", Value: "true"})
	if got := resolveBuild("$Id$", dirty); got != "4b825dc642cb-dirty" {
		t.Errorf("got %q", got)
	}
	if got := resolveBuild("abc123", settings); got != "abc123" {
		t.Errorf("explicit build replaced: %q", got)
	}
	if got := resolveBuild("$Id$", nil); got != "$Id$" {
		t.Errorf("got %q", got)
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Major: "1", Minor: "2", Patch: "3", Metadata: "rc1", Build: "deadbeef"}
	if got, want := v.String(), "Version: 1.2.3-rc1\nBuild: deadbeef"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildInfo(t *testing.T) {
	if !strings.HasPrefix(BuildInfo(), runtime.Version()+"\n") {
		t.Errorf("build info does not start with the go version:\n%s", BuildInfo())
	}
}
