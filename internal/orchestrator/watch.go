package orchestrator

import (
	"context"
	"fmt"

	"surveyclean/internal/audit"
	"surveyclean/internal/organizer"
	"surveyclean/internal/scanner"
	"surveyclean/internal/watcher"
)

// Watch rewrites exports as they appear in dir until ctx is cancelled.
// Each settled file goes through the same path as one batch entry.
func (o *Orchestrator) Watch(ctx context.Context, dir string) (*watcher.WatchSummary, error) {
	runID := o.startRun("watch")
	planner := o.newPlanner()

	w := watcher.New(o.config.Watch, func(path string) (bool, error) {
		return o.handleWatched(planner, path)
	},
		watcher.WithExclude(func(path string) bool {
			return !scanner.IsCSV(path) || o.isOutput(path)
		}),
		watcher.WithErrorHandler(func(path string, err error) {
			if path == "" {
				o.out.Error("watch: %v", err)
				return
			}
			o.out.Error("Error processing %s: %v", path, err)
		}),
	)

	if err := w.Start([]string{dir}); err != nil {
		o.endRunWithStatus(runID, audit.RunStatusFailed, audit.RunSummary{})
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	o.out.Info("Watching %s for new exports (Ctrl+C to stop)", dir)

	<-ctx.Done()
	summary := w.Stop()

	o.endRunWithStatus(runID, audit.RunStatusInterrupted, audit.RunSummary{
		TotalFiles: summary.FilesRewritten + summary.FilesFailed,
		Rewritten:  summary.FilesRewritten,
		Failed:     summary.FilesFailed,
	})
	return summary, nil
}

func (o *Orchestrator) handleWatched(planner *organizer.Planner, path string) (bool, error) {
	result := o.rewriteInPlace(planner, path)
	if result.Err != nil {
		return false, result.Err
	}
	o.out.Info("Rewrote %s -> %s", result.SourcePath, result.DestinationPath)
	return true, nil
}
