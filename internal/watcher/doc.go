// Package watcher ingests passage files dropped into an inbox directory.
//
// Files matching the inbox pattern (*.jsonl by default, one passage record
// per line) are picked up by fsnotify, or by polling where fsnotify is not
// available, debounced while they are still being written, handed to the
// index coordinator and then moved to inbox/processed. Files that fail to
// decode are moved to inbox/failed.
//
// Usage:
//
//	w, err := watcher.New(cfg.Paths.InboxDir, watcher.NewIngester(coord, cfg.Paths.InboxDir), watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Run(ctx) }()
package watcher
