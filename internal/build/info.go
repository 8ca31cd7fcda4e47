// Copyright 2022 The MaxMQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package build provides the build information of the application.
package build

import (
	"bytes"
	"fmt"
	"runtime"
	"runtime/debug"
	"text/tabwriter"
)

// Values set at link time with -ldflags "-X".
var (
	version   string
	revision  string
	buildTime string
	buildType string
)

// Info contains the build information.
type Info struct {
	// The application version, or "dev" when it's unknown.
	Version string

	// The commit ID of the build.
	Revision string

	// The build time in UTC (year-month-day hour:min:sec).
	BuildTime string

	// Type of the build: "development" or "release".
	BuildType string

	// The runtime platform (architecture and operating system).
	Platform string

	// The runtime Go version.
	GoVersion string
}

// GetInfo returns the build Info. When the version was not set at link time,
// the module version recorded in the binary is used.
func GetInfo() Info {
	i := Info{
		Version:   version,
		Revision:  revision,
		BuildTime: buildTime,
		BuildType: buildType,
		Platform:  fmt.Sprintf("%s-%s", runtime.GOARCH, runtime.GOOS),
		GoVersion: runtime.Version(),
	}

	if i.Version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" &&
			bi.Main.Version != "(devel)" {
			i.Version = bi.Main.Version
		}
	}
	if i.Version == "" {
		i.Version = "dev"
	}
	if i.BuildType == "" {
		i.BuildType = "development"
	}

	return i
}

// ShortVersion returns a one-line version summary.
func (i Info) ShortVersion() string {
	return fmt.Sprintf("MaxIoT version %s\n", i.Version)
}

// LongVersion returns the build summary, one field per line.
func (i Info) LongVersion() string {
	fields := []struct {
		name  string
		value string
	}{
		{"Version", i.Version},
		{"Revision", i.Revision},
		{"Build Time", i.BuildTime},
		{"Build Type", i.BuildType},
		{"Platform", i.Platform},
		{"Go Version", i.GoVersion},
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for n, f := range fields {
		_, _ = fmt.Fprintf(tw, "%s:\t%s", f.name, f.value)

		// cobra prints the trailing newline
		if n < len(fields)-1 {
			_, _ = fmt.Fprintln(tw)
		}
	}

	_ = tw.Flush()
	return buf.String()
}
