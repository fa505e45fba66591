// Package source loads rulesets and keeps the current one available to the
// engine.
//
// # Sources
//
// FileSource reads a single YAML file or a directory of them, merges the
// files, and runs the validator. MemorySource serves a ruleset built in code.
//
// # Cache
//
// Cache publishes an immutable snapshot that evaluations read without
// locking. A reload that fails to parse or validate leaves the previous
// snapshot in place:
//
//	cache := source.NewCache(source.NewFileSource("rulesets/", logger), logger)
//	if err := cache.Load(ctx); err != nil {
//	    return err
//	}
//	eng := engine.NewEngine(cache, logger)
//
// # Hot Reload
//
// Watcher turns file-system events into debounced reloads:
//
//	w, _ := source.NewWatcher(&source.WatcherConfig{Path: "rulesets/"}, logger)
//	go w.Watch(ctx, func() error { return cache.Reload(ctx) })
package source
