package dcc

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/apdcc/src.APDCC_VERSION=X'"`
var APDCC_VERSION string

func getBuildSetting(bi *debug.BuildInfo, key string, defaultValue string) string {
	if bi == nil {
		return defaultValue
	}

	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// VersionString names the program, version and VCS revision.
func VersionString(program string) string {
	var buildInfo, _ = debug.ReadBuildInfo()

	var (
		buildTime                 = getBuildSetting(buildInfo, "vcs.time", "UNKNOWN")
		buildCommit               = getBuildSetting(buildInfo, "vcs.revision", "UNKNOWN")
		buildDirtyStr             = getBuildSetting(buildInfo, "vcs.modified", "INVALID")
		buildDirty, buildDirtyErr = strconv.ParseBool(buildDirtyStr)
	)

	if buildDirty {
		buildCommit += "-DIRTY"
	} else if buildDirtyErr != nil {
		buildCommit += "-UNKNOWNDIRTY"
	}

	var version = APDCC_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	return fmt.Sprintf("%s - Version %s (revision %s, built at %s)", program, version, buildCommit, buildTime)
}

func printVersion(program string, verbose bool) {
	fmt.Println(VersionString(program))

	if verbose {
		var buildInfo, _ = debug.ReadBuildInfo()
		fmt.Printf("\nBuildInfo: %+v\n", buildInfo)
	}
}
