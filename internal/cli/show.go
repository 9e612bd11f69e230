package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	store, release, err := openStore(c.globals, c.store)
	if err != nil {
		return err
	}
	defer release()

	window, err := c.resolve(context.Background(), store)
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return printJSON(window)
	}

	fmt.Printf("Window %s (%d tabs)\n", window.ID, len(window.Tabs))
	if len(window.Tabs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t#\tID\tTITLE\tURL\tMODE")
	for i, tab := range window.Tabs {
		marker := ""
		if window.ActiveTabID != nil && *window.ActiveTabID == tab.ID {
			marker = "*"
		}
		mode := "normal"
		if tab.IsPrivate {
			mode = "private"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			marker, i, tab.ID, truncate(tab.Title, 40), truncate(tab.URL, 60), mode)
	}
	return tw.Flush()
}

// resolve returns the window named by --id, or the primary (else first) window.
func (c *ShowCommand) resolve(ctx context.Context, store session.Store) (*types.WindowSnapshot, error) {
	if c.ID != "" {
		id, err := uuid.Parse(c.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid window id %q: %w", c.ID, err)
		}
		window, err := store.FetchWindowData(ctx, id)
		if errors.Is(err, session.ErrWindowNotFound) {
			return nil, fmt.Errorf("window %s not found", id)
		}
		return window, err
	}

	windows, err := store.FetchAllWindowsData(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, errors.New("no persisted windows")
	}
	for i := range windows {
		if windows[i].IsPrimary {
			return &windows[i], nil
		}
	}
	return &windows[0], nil
}
