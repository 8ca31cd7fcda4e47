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

package build

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_GetInfo(t *testing.T) {
	i := GetInfo()

	assert.NotEmpty(t, i.Version)
	assert.Equal(t, "development", i.BuildType)
	assert.Equal(t, runtime.GOARCH+"-"+runtime.GOOS, i.Platform)
	assert.Equal(t, runtime.Version(), i.GoVersion)
}

func TestInfo_ShortVersion(t *testing.T) {
	i := Info{Version: "1.2.3"}
	assert.Equal(t, "MaxIoT version 1.2.3\n", i.ShortVersion())
}

func TestInfo_LongVersion(t *testing.T) {
	i := Info{
		Version:   "1.2.3",
		Revision:  "abc123",
		BuildTime: "2022-01-02 03:04:05",
		BuildType: "release",
		Platform:  "amd64-linux",
		GoVersion: "go1.17",
	}

	lines := strings.Split(i.LongVersion(), "\n")
	assert.Len(t, lines, 6)
	assert.Regexp(t, `^Version:\s+1\.2\.3$`, lines[0])
	assert.Regexp(t, `^Revision:\s+abc123$`, lines[1])
	assert.Regexp(t, `^Build Type:\s+release$`, lines[3])
	assert.Regexp(t, `^Go Version:\s+go1\.17$`, lines[5])
}
