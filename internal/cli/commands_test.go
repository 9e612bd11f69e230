package cli

import (
	"context"
	"encoding/json"
	"image/color"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
	"github.com/GriffinCanCode/tabkeeper/internal/testutil"
)

func TestWindowsTable(t *testing.T) {
	store, primary, secondary := seededStore(t)
	cmd := &WindowsCommand{globals: &GlobalFlags{}, store: store}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "PRIMARY")
	assert.Contains(t, output, primary.ID.String())
	assert.Contains(t, output, secondary.ID.String())
}

func TestWindowsJSON(t *testing.T) {
	store, primary, _ := seededStore(t)
	cmd := &WindowsCommand{globals: &GlobalFlags{JSON: true}, store: store}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var resp struct {
		Windows []types.WindowSummary `json:"windows"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, 2, resp.Count)
	for _, w := range resp.Windows {
		if w.ID == primary.ID {
			assert.True(t, w.IsPrimary)
			assert.Equal(t, 3, w.TabCount)
		} else {
			assert.Equal(t, 1, w.PrivateTabs)
		}
	}
}

func TestShowDefaultsToPrimary(t *testing.T) {
	store, primary, _ := seededStore(t)
	cmd := &ShowCommand{globals: &GlobalFlags{}, store: store}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Window "+primary.ID.String()+" (3 tabs)")
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, primary.Tabs[1].ID.String()) {
			assert.True(t, strings.HasPrefix(line, "*"), "active tab is marked")
		}
	}
}

func TestShowByID(t *testing.T) {
	store, _, secondary := seededStore(t)
	cmd := &ShowCommand{ID: secondary.ID.String(), globals: &GlobalFlags{JSON: true}, store: store}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var got types.WindowSnapshot
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, secondary.ID, got.ID)
	require.Len(t, got.Tabs, 1)
	assert.True(t, got.Tabs[0].IsPrivate)
}

func TestShowErrors(t *testing.T) {
	store, _, _ := seededStore(t)

	cmd := &ShowCommand{ID: "nope", globals: &GlobalFlags{}, store: store}
	assert.ErrorContains(t, cmd.Execute(nil), "invalid window id")

	cmd = &ShowCommand{ID: uuid.NewString(), globals: &GlobalFlags{}, store: store}
	assert.ErrorContains(t, cmd.Execute(nil), "not found")

	cmd = &ShowCommand{globals: &GlobalFlags{}, store: testutil.NewMemoryStore()}
	assert.ErrorContains(t, cmd.Execute(nil), "no persisted windows")
}

func TestRemove(t *testing.T) {
	store, primary, _ := seededStore(t)
	cmd := &RemoveCommand{ID: primary.ID.String(), globals: &GlobalFlags{}, store: store}

	captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	windows, err := store.FetchAllWindowsData(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.NotEqual(t, primary.ID, windows[0].ID)
}

func TestPruneImages(t *testing.T) {
	store, primary, _ := seededStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveImage(ctx, primary.Tabs[0].ID, testutil.Thumbnail(color.Black)))
	require.NoError(t, store.SaveImage(ctx, uuid.New(), testutil.Thumbnail(color.White)))
	require.NoError(t, store.SaveImage(ctx, uuid.New(), testutil.Thumbnail(color.White)))

	cmd := &PruneImagesCommand{globals: &GlobalFlags{}, store: store}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Pruned 2 orphaned thumbnails")
	_, err := store.FetchImage(ctx, primary.Tabs[0].ID)
	assert.NoError(t, err)
}

func TestClearRequiresAll(t *testing.T) {
	store, _, _ := seededStore(t)
	cmd := &ClearCommand{Force: true, globals: &GlobalFlags{}, store: store}

	assert.ErrorContains(t, cmd.Execute(nil), "--all")
	windows, err := store.FetchAllWindowsData(context.Background())
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestClearConfirmation(t *testing.T) {
	store, _, _ := seededStore(t)
	cmd := &ClearCommand{All: true, globals: &GlobalFlags{}, store: store}

	captureOutput(t, func() {
		assert.ErrorContains(t, cmd.execute(strings.NewReader("nope\n")), "did not match")
	})
	windows, _ := store.FetchAllWindowsData(context.Background())
	assert.Len(t, windows, 2)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.execute(strings.NewReader("CLEAR\n")))
	})
	assert.Contains(t, output, "All tab data deleted.")
	windows, _ = store.FetchAllWindowsData(context.Background())
	assert.Empty(t, windows)
}

func TestClearForceJSON(t *testing.T) {
	store, _, _ := seededStore(t)
	cmd := &ClearCommand{All: true, Force: true, globals: &GlobalFlags{JSON: true}, store: store}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})
	assert.JSONEq(t, `{"cleared": true}`, output)
}
