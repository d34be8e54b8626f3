package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2024-01-15T12:00:00Z"},
		},
	}

	got := fillFromBuildInfo(Info{Version: "dev", Commit: "unknown", BuildTime: "unknown"}, bi)
	assert.Equal(t, "v1.2.3", got.Version)
	assert.Equal(t, "0123456", got.Commit)
	assert.Equal(t, "2024-01-15T12:00:00Z", got.BuildTime)
}

func TestFillFromBuildInfo_LdflagsWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffff"}},
	}

	in := Info{Version: "1.0.0", Commit: "abc1234", BuildTime: "2024-02-01T00:00:00Z"}
	assert.Equal(t, in, fillFromBuildInfo(in, bi))
}

func TestFillFromBuildInfo_DevelIgnored(t *testing.T) {
	bi := &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}
	got := fillFromBuildInfo(Info{Version: "dev"}, bi)
	assert.Equal(t, "dev", got.Version)
}

func TestString(t *testing.T) {
	s := String()
	assert.True(t, strings.Contains(s, " built "), s)
	assert.NotEmpty(t, Get().GoVersion)
}
