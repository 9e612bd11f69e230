package cli

import (
	"context"
	"fmt"
)

// Execute implements the go-flags Commander interface for PruneImagesCommand.
func (c *PruneImagesCommand) Execute(args []string) error {
	store, release, err := openStore(c.globals, c.store)
	if err != nil {
		return err
	}
	defer release()

	removed, err := store.PruneOrphanedImages(context.Background())
	if err != nil {
		return fmt.Errorf("prune images: %w", err)
	}

	if c.globals.JSON {
		return printJSON(map[string]any{"pruned": removed})
	}
	fmt.Printf("Pruned %d orphaned thumbnails\n", removed)
	return nil
}
