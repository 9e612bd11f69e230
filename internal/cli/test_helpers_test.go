package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
	"github.com/GriffinCanCode/tabkeeper/internal/testutil"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// seededStore returns a store holding a primary window with three tabs and a
// secondary window with one private tab.
func seededStore(t *testing.T) (*testutil.MemoryStore, types.WindowSnapshot, types.WindowSnapshot) {
	t.Helper()
	primary := testutil.Window(testutil.TabData(3))
	primary.ActiveTabID = &primary.Tabs[1].ID

	secondaryTabs := testutil.TabData(1)
	secondaryTabs[0].IsPrivate = true
	secondary := testutil.Window(secondaryTabs)
	secondary.IsPrimary = false

	return testutil.NewMemoryStore(primary, secondary), primary, secondary
}
