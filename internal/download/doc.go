// Package download orchestrates a run: it lists the units of a series,
// downloads them on a bounded worker pool and retries failures once.
//
// # Flow
//
//  1. The content source lists the units of the root locator.
//  2. Up to MaxConcurrentUnits units are processed at a time. A unit already
//     recorded as completed is skipped without any network call.
//  3. For each unit the page is fetched, assets are extracted and then
//     downloaded one by one to {output}/{series}/{unit}/{NNN}{ext}. Files
//     already on disk are kept.
//  4. The unit status (completed, incomplete or failed) is written to the
//     progress store.
//  5. Failed unit pages and failed assets are queued; once every worker is
//     done the queue is drained exactly once.
//  6. Cookies are saved.
//
// Cancelling the context stops the run at the next unit or asset boundary.
// A request already on the wire finishes and every file write is atomic, so
// nothing partial is left on disk. Running out of proxies aborts the run.
//
// # Basic Usage
//
//	settings, _ := config.Load("config.toml")
//	manager, err := download.NewManager(settings, func(e download.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
//
//	summary, err := manager.Run(ctx, "https://nettruyen.example/truyen/one-piece")
package download
