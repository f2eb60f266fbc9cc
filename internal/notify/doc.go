// Package notify provides watcher.Notifier sinks for gitwatch sessions.
//
// Sinks compose: a RepoFilter drops ignored paths before forwarding, a
// Fanout delivers to several sinks, and a Stopper ends the session after an
// explicit stop or a number of batches. Printer writes batches to a stream
// and Journal records them in the history store.
//
//	journal, _ := notify.NewJournal(st, root, exclusionRoot, gitDir, logger)
//	defer journal.Close()
//	sink := notify.NewStopper(notify.Fanout{notify.NewPrinter(os.Stdout, "text", gitDir), journal}, 0)
//	filter, _ := notify.NewRepoFilter(sink, root, notify.FilterOptions{Gitignore: true})
//	err := ctrl.Watch(ctx, root, exclusionRoot, filter)
package notify
