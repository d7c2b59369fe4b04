package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [dir...]",
	Aliases: []string{"w"},
	Short:   "Re-validate documents whenever they change",
	Long: `Watch directories for changes to MJML documents and validate every
changed file. Directories default to watch.paths, files are selected by
watch.patterns and watch.ignore.

Examples:
  mailblocks watch
  mailblocks watch templates --strict`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&validateStrict, "strict", false, "Report unknown component types")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = env.config.Watch.Paths
	}

	out := cmd.OutOrStdout()
	w, err := env.newWatcher(paths, func(_ context.Context, batch watcher.Batch) {
		for _, doc := range batch {
			env.reportChange(out, doc)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	w.Start(ctx)

	env.logger.Info(ctx, "Watching for changes", "dirs", len(w.Dirs()), "patterns", env.config.Watch.Patterns)
	<-ctx.Done()
	return nil
}

// newWatcher builds a watcher over paths that decodes changed documents
// with the configured codec.
func (e *environment) newWatcher(paths []string, handler watcher.Handler) (*watcher.Watcher, error) {
	w, err := watcher.New(watcher.FromConfig(e.config.Watch, e.decoder(), e.logger), handler)
	if err != nil {
		return nil, mailerrors.NewIOError(mailerrors.ErrCodeIO, "failed to create file watcher", err)
	}
	for _, path := range paths {
		if err := w.Add(path); err != nil {
			_ = w.Close()
			return nil, mailerrors.WrapIO(err, path, "failed to watch path")
		}
	}
	return w, nil
}

// reportChange prints one status block for a changed document.
func (e *environment) reportChange(out io.Writer, doc watcher.Document) {
	if doc.Op == watcher.OpRemoved {
		fmt.Fprintf(out, "- %s removed\n", doc.Path)
		return
	}
	writeResultText(out, e.checkDocument(doc.Path, doc.Tree, doc.Err))
}
