package cli

import "github.com/GriffinCanCode/tabkeeper/internal/domain/session"

// GlobalFlags holds flags available to all subcommands. Backend and Dir
// override the config file and environment.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to YAML config file"`
	Backend string `long:"backend" description:"Store backend: file | sqlite"`
	Dir     string `long:"dir" description:"Store directory"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// WindowsCommand lists persisted windows.
type WindowsCommand struct {
	globals *GlobalFlags
	version string
	store   session.Store // injectable for testing; nil means open from config
}

// ShowCommand prints the tabs of one window.
type ShowCommand struct {
	ID string `long:"id" description:"Window id (default: primary window)"`

	globals *GlobalFlags
	version string
	store   session.Store
}

// RemoveCommand deletes one window snapshot.
type RemoveCommand struct {
	ID string `long:"id" description:"Window id (required)" required:"true"`

	globals *GlobalFlags
	version string
	store   session.Store
}

// PruneImagesCommand deletes thumbnails of tabs that no longer exist.
type PruneImagesCommand struct {
	globals *GlobalFlags
	version string
	store   session.Store
}

// ClearCommand deletes all tab data with safety confirmation.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	store   session.Store
}
