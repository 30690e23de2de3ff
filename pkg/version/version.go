// Package version reports the version of fdb and the modules it was built
// from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version represents the current version of fdb.
type Version struct {
	Major    string
	Minor    string
	Patch    string
	Metadata string
	Build    string
}

// FdbVersion is the current version of fdb.
var FdbVersion = Version{
	Major: "0", Minor: "3", Patch: "0", Metadata: "",
	Build: "$Id$",
}

func (v Version) String() string {
	v.Build = resolveBuild(v.Build, readSettings())
	ver := fmt.Sprintf("Version: %s.%s.%s", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		ver += "-" + v.Metadata
	}
	return fmt.Sprintf("%s\nBuild: %s", ver, v.Build)
}

func readSettings() []debug.BuildSetting {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info.Settings
}

// resolveBuild replaces an unexpanded $Id$ build string with the VCS
// revision recorded by the go command.
func resolveBuild(build string, settings []debug.BuildSetting) string {
	if !strings.HasPrefix(build, "$Id$") {
		return build
	}
	for _, setting := range settings {
		if setting.Key == "vcs.revision" {
			rev := setting.Value
			for _, s := range settings {
				if s.Key == "vcs.modified" && s.Value == "true" {
					rev += "-dirty"
				}
			}
			return rev
		}
	}
	return build
}

// BuildInfo returns the Go version and the list of modules linked into the
// binary.
func BuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Sprintf("%s\nnot built in module mode\n", runtime.Version())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", runtime.Version())
	fmt.Fprintf(&b, " mod\t%s\t%s\t%s\n", info.Main.Path, info.Main.Version, info.Main.Sum)
	for _, dep := range info.Deps {
		fmt.Fprintf(&b, " dep\t%s\t%s\t%s", dep.Path, dep.Version, dep.Sum)
		if dep.Replace != nil {
			fmt.Fprintf(&b, "\t=> %s\t%s\t%s", dep.Replace.Path, dep.Replace.Version, dep.Replace.Sum)
		}
		b.WriteString("\n")
	}
	return b.String()
}
