package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	return c.execute(os.Stdin)
}

func (c *ClearCommand) execute(stdin io.Reader) error {
	if !c.All {
		return errors.New("clear requires --all flag for safety")
	}

	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Println("WARNING: This will permanently delete ALL persisted windows, tabs and thumbnails.")
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "CLEAR" to confirm: `)

		scanner := bufio.NewScanner(stdin)
		if !scanner.Scan() {
			return errors.New("aborted: no input received")
		}
		if strings.TrimSpace(scanner.Text()) != "CLEAR" {
			return errors.New("aborted: confirmation text did not match")
		}
	}

	store, release, err := openStore(c.globals, c.store)
	if err != nil {
		return err
	}
	defer release()

	if err := store.ClearAllTabData(context.Background()); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	if c.globals.JSON {
		return printJSON(map[string]any{"cleared": true})
	}
	fmt.Println("All tab data deleted.")
	return nil
}
