package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// Execute implements the go-flags Commander interface for WindowsCommand.
func (c *WindowsCommand) Execute(args []string) error {
	store, release, err := openStore(c.globals, c.store)
	if err != nil {
		return err
	}
	defer release()

	windows, err := store.FetchAllWindowsData(context.Background())
	if err != nil {
		return fmt.Errorf("fetch windows: %w", err)
	}

	summaries := make([]types.WindowSummary, len(windows))
	for i := range windows {
		summaries[i] = windows[i].ToSummary()
	}

	if c.globals.JSON {
		return printJSON(map[string]any{
			"windows": summaries,
			"count":   len(summaries),
		})
	}

	if len(summaries) == 0 {
		fmt.Println("No persisted windows.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRIMARY\tTABS\tPRIVATE\tSAVED")
	for _, s := range summaries {
		primary := ""
		if s.IsPrimary {
			primary = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			s.ID, primary, s.TabCount, s.PrivateTabs, s.SavedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
