package cli

import (
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/config"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/logging"
)

// openStore returns injected when set, otherwise the store named by the
// config file, environment and global flags. The returned func releases it.
func openStore(globals *GlobalFlags, injected session.Store) (session.Store, func(), error) {
	if injected != nil {
		return injected, func() {}, nil
	}

	cfg, err := config.LoadFile(globals.Config)
	if err != nil {
		return nil, nil, err
	}
	if globals.Backend != "" {
		cfg.Store.Backend = globals.Backend
	}
	if globals.Dir != "" {
		cfg.Store.Dir = globals.Dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	if globals.Verbose {
		logger = logging.NewDevelopment().Logger
	}

	compression, err := session.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, nil, err
	}
	store, err := session.Open(cfg.Store.Backend, cfg.StorePath(), session.Options{
		Logger:           logger,
		Compression:      compression,
		FetchConcurrency: cfg.Store.FetchConcurrency,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
