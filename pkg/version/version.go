// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package version holds the build information, set at link time with -X flags.
package version

var VERSION, BUILD_DATE, GIT_DESCRIPTION, GIT_REVISION string

// Info is the JSON and YAML form of the build information.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitTagRef string `json:"gitTagRef"`
	GitCommit string `json:"gitCommit"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   VERSION,
		BuildDate: BUILD_DATE,
		GitTagRef: GIT_DESCRIPTION,
		GitCommit: GIT_REVISION,
	}
}
