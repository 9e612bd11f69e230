package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Windows     *WindowsCommand
	Show        *ShowCommand
	Remove      *RemoveCommand
	PruneImages *PruneImagesCommand
	Clear       *ClearCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tabkeeper"
	parser.LongDescription = "Inspect and maintain persisted browser windows and tabs."

	cmds := &commands{
		Windows:     &WindowsCommand{globals: &globals, version: version},
		Show:        &ShowCommand{globals: &globals, version: version},
		Remove:      &RemoveCommand{globals: &globals, version: version},
		PruneImages: &PruneImagesCommand{globals: &globals, version: version},
		Clear:       &ClearCommand{globals: &globals, version: version},
	}

	parser.AddCommand("windows", "List persisted windows", "List every persisted window with its tab counts.", cmds.Windows)
	parser.AddCommand("show", "Show the tabs of a window", "Show the ordered tabs of one window, the primary window by default.", cmds.Show)
	parser.AddCommand("remove", "Remove a persisted window", "Remove one persisted window snapshot by id.", cmds.Remove)
	parser.AddCommand("prune-images", "Delete orphaned thumbnails", "Delete thumbnails whose tab no longer exists in any window.", cmds.PruneImages)
	parser.AddCommand("clear", "Delete ALL tab data", "Delete every window snapshot and thumbnail. Destructive operation with safety prompt.", cmds.Clear)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tabkeeper %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}

	return nil
}
