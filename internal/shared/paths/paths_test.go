package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDataDirXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/var/lib/xdg")
	assert.Equal(t, filepath.Join("/var/lib/xdg", AppName), DefaultDataDir())
}

func TestDefaultDataDirHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, ".local", "share", AppName), DefaultDataDir())
}

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, "tabs"), Expand("~/tabs"))
	assert.Equal(t, home, Expand("~"))
	assert.Equal(t, "/srv/tabs", Expand("/srv/tabs"))
	assert.Equal(t, "~other/tabs", Expand("~other/tabs"))
}

func TestStorePath(t *testing.T) {
	assert.Equal(t, "/data", StorePath("file", "/data"))
	assert.Equal(t, filepath.Join("/data", DatabaseFile), StorePath("sqlite", "/data"))
}
