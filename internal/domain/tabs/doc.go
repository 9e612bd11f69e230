// Package tabs manages the live tab list of a browser window.
//
// The Manager is the single owner of a window's tabs. It keeps tabs in
// display order, tracks the active tab and persists the whole list through a
// session.Store.
//
// Key Components:
//   - Manager: add, select, move, update and remove tabs
//   - PreserveTabs: debounced save; rapid calls share one write
//   - RestoreTabs: rebuild the list from the persisted snapshot
//   - Task: completion handle for asynchronous saves and restores
//   - Observer: change notifications delivered after the lock is released
//
// Example Usage:
//
//	manager := tabs.NewManager(store, tabs.Options{Logger: log})
//	if err := manager.RestoreTabs(ctx, false).Wait(ctx); err != nil {
//	    log.Warn("restore failed", zap.Error(err))
//	}
//	tab, _ := manager.AddTab(tabs.AddTabOptions{URL: "https://www.mozilla.org"})
//	manager.SelectTab(tab.ID)
//	manager.PreserveTabs()
package tabs
