// Command exportctl renders dialog exports from a YAML project fixture without a
// running server. Objects, templates and generation conditions come from the
// fixture; anything missing there falls back to the bundled defaults in --data.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/story-export/internal/logger"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/storage"
)

type options struct {
	dataDir  string
	maxDepth int
	verbose  bool
}

// session is a fixture loaded into an in-memory store
type session struct {
	fixture  *storage.Fixture
	store    *storage.MemoryStorage
	exporter *export.Exporter
}

func (o *options) logger() *slog.Logger {
	if !o.verbose {
		return logger.Discard()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (o *options) open(path string) (*session, error) {
	f, err := storage.LoadFixtureFile(path)
	if err != nil {
		return nil, err
	}
	store := storage.NewMemoryStorage(os.DirFS(o.dataDir))
	if err := store.Seed(f); err != nil {
		return nil, fmt.Errorf("failed to seed fixture: %w", err)
	}
	return &session{
		fixture:  f,
		store:    store,
		exporter: export.New(store, o.logger(), export.Config{MaxStepDepth: o.maxDepth}),
	}, nil
}

func (s *session) dialog(id string) (*dialog.Graph, error) {
	g, ok := s.fixture.Dialog(id)
	if !ok {
		return nil, fmt.Errorf("dialog %q not found in fixture", id)
	}
	return g, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "exportctl",
		Short: "Render dialog script exports from a project fixture",
		Long: `exportctl renders dialog exports from a YAML project fixture.

Examples:
  exportctl render demo.yaml d1 act
  exportctl render --mode function demo.yaml d1 start
  exportctl export demo.yaml d1
  exportctl decide demo.yaml d1 start
  exportctl conditions --lang de demo.yaml
  exportctl placeholders --engine Legacy SetQuestState
  exportctl import --redis localhost:6379 demo.yaml
  exportctl enqueue --redis localhost:6379 demo.yaml d1`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data", "./data", "directory with the bundled default templates and conditions")
	root.PersistentFlags().IntVar(&opts.maxDepth, "max-depth", export.DefaultMaxStepDepth, "maximum number of steps rendered inline after a node")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newRenderCmd(opts),
		newExportCmd(opts),
		newDecideCmd(opts),
		newConditionsCmd(opts),
		newPlaceholdersCmd(),
		newImportCmd(opts),
		newEnqueueCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
