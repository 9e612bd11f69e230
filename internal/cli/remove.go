package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Execute implements the go-flags Commander interface for RemoveCommand.
func (c *RemoveCommand) Execute(args []string) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid window id %q: %w", c.ID, err)
	}

	store, release, err := openStore(c.globals, c.store)
	if err != nil {
		return err
	}
	defer release()

	if err := store.RemoveWindowData(context.Background(), id); err != nil {
		return fmt.Errorf("remove window: %w", err)
	}

	if c.globals.JSON {
		return printJSON(map[string]any{"removed": id})
	}
	fmt.Printf("Removed window %s\n", id)
	return nil
}
