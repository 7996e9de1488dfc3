package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"livecanvas/internal/config"
	"livecanvas/internal/logging"
	"livecanvas/internal/registry"
	"livecanvas/internal/render"
	"livecanvas/internal/session"
	"livecanvas/internal/watch"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "livecanvas",
	Short: "livecanvas - visual editing synchronized back to authored source",
	Long: `livecanvas keeps a visually edited page and its authored source file
in sync. Structural edits land in a dual-view tree, are serialized into
construction calls, and are patched into the machine-owned region of the
source document without touching hand-written code.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// editCmd runs an interactive editing session against a live browser.
var editCmd = &cobra.Command{
	Use:   "edit [markup-file]",
	Short: "Start an editing session for the configured source file",
	Long: `Loads the given markup into the render surface, builds the dual-view
trees, and synchronizes the authored source file after every change.
While the session runs, external edits to the source file trigger a full
reload.

Example:
  livecanvas edit build/page.html --source src/pages/Page.js`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

// regenCmd performs one capture/generate/patch pass and exits.
var regenCmd = &cobra.Command{
	Use:   "regen [markup-file]",
	Short: "Regenerate the source file's machine-owned region once",
	Long: `Parses the markup file, serializes it into construction calls, and
patches the result into the configured source file. With --dry-run the
rewritten document goes to stdout and the file is left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegen,
}

// statusCmd shows the effective configuration.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective livecanvas configuration",
	RunE:  showStatus,
}

var (
	// edit/regen flags
	sourcePath string
	ownSymbol  string
	dryRun     bool
	memSurface bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".canvas/config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	for _, cmd := range []*cobra.Command{editCmd, regenCmd} {
		cmd.Flags().StringVar(&sourcePath, "source", "", "Authored source file (overrides config)")
		cmd.Flags().StringVar(&ownSymbol, "symbol", "", "Authored component symbol (overrides config)")
	}
	editCmd.Flags().BoolVar(&memSurface, "no-browser", false, "Use the in-process surface instead of Chrome")
	regenCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the rewritten source instead of writing it")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(regenCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSetup resolves config, workspace, and the element registry.
func loadSetup() (*config.Config, string, registry.Registry, error) {
	cwd := workspace
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	cfg, err := config.Load(resolvePath(cwd, configPath))
	if err != nil {
		return nil, "", nil, err
	}
	if sourcePath != "" {
		cfg.Source.Path = sourcePath
	}
	if ownSymbol != "" {
		cfg.Source.OwnSymbol = ownSymbol
	}

	if err := logging.Initialize(cwd, logging.Settings{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}

	reg, err := openRegistry(cwd, cfg.Registry)
	if err != nil {
		return nil, "", nil, err
	}
	return cfg, cwd, reg, nil
}

// openRegistry builds the element origin registry from config.
func openRegistry(cwd string, rc config.RegistryConfig) (registry.Registry, error) {
	path := resolvePath(cwd, rc.Path)
	switch strings.ToLower(rc.Driver) {
	case "", "json":
		return registry.NewFileRegistry(path)
	case "sqlite":
		return registry.OpenSQLiteRegistry(path)
	default:
		return nil, fmt.Errorf("unknown registry driver %q", rc.Driver)
	}
}

func resolvePath(cwd, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

func newSession(cfg *config.Config, cwd string, reg registry.Registry, surface render.Surface) *session.Session {
	src := resolvePath(cwd, cfg.Source.Path)
	return session.New(session.Config{
		OwnSymbol:    cfg.Source.OwnSymbol,
		SourceDir:    filepath.Dir(src),
		SharedModule: cfg.Codegen.SharedModule,
		MixinModule:  cfg.Codegen.MixinModule,
		Debounce:     cfg.GetDebounce(),
	}, reg, surface, &session.FileStore{Path: src})
}

// runEdit starts the editing session and blocks until interrupted.
func runEdit(cmd *cobra.Command, args []string) error {
	cfg, cwd, reg, err := loadSetup()
	if err != nil {
		return err
	}
	defer logging.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var surface render.Surface
	if memSurface {
		surface = render.NewMemorySurface()
	} else {
		surface, err = render.NewRodSurface(ctx, cfg.Render)
		if err != nil {
			return fmt.Errorf("render surface: %w", err)
		}
	}
	defer surface.Close()

	markupPath := resolvePath(cwd, args[0])
	markup, err := os.ReadFile(markupPath)
	if err != nil {
		return fmt.Errorf("read markup: %w", err)
	}

	sess := newSession(cfg, cwd, reg, surface)
	sess.Start(ctx)
	defer sess.Close()

	sess.OnBroadcast(func(b session.Broadcast) {
		if b.Error != "" {
			logger.Warn("sync error", zap.String("error", b.Error))
			return
		}
		logger.Debug("broadcast",
			zap.Int("nodes", len(b.Snapshot)),
			zap.Int("custom_elements", len(b.RuntimeProperties)))
	})

	if err := sess.LoadContent(ctx, string(markup)); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("source", cfg.Source.Path))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Source.Watch {
		watcher, err := watch.New(resolvePath(cwd, cfg.Source.Path), func(wctx context.Context, path string) {
			logger.Info("source edited externally, reloading", zap.String("path", path))
			// Reload the surface so the page reflects the hand edit; the
			// next sync pass re-adopts the tree from the re-rendered result.
			fresh, rerr := os.ReadFile(markupPath)
			if rerr != nil {
				logger.Warn("reread markup", zap.Error(rerr))
				return
			}
			if lerr := sess.LoadContent(wctx, string(fresh)); lerr != nil {
				logger.Warn("reload failed", zap.Error(lerr))
			}
		})
		if err != nil {
			return fmt.Errorf("source watcher: %w", err)
		}
		if err := watcher.Start(gctx); err != nil {
			return fmt.Errorf("source watcher: %w", err)
		}
		defer watcher.Stop()
	}

	g.Go(func() error {
		select {
		case <-sigCh:
			logger.Info("shutdown signal received")
			cancel()
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// runRegen does a single synchronization pass without a browser.
func runRegen(cmd *cobra.Command, args []string) error {
	cfg, cwd, reg, err := loadSetup()
	if err != nil {
		return err
	}
	defer logging.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	markup, err := os.ReadFile(resolvePath(cwd, args[0]))
	if err != nil {
		return fmt.Errorf("read markup: %w", err)
	}

	srcPath := resolvePath(cwd, cfg.Source.Path)
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	store := session.NewMemoryStore(string(source))
	sess := session.New(session.Config{
		OwnSymbol:    cfg.Source.OwnSymbol,
		SourceDir:    filepath.Dir(srcPath),
		SharedModule: cfg.Codegen.SharedModule,
		MixinModule:  cfg.Codegen.MixinModule,
	}, reg, render.NewMemorySurface(), store)
	sess.Start(ctx)
	defer sess.Close()

	var syncErr string
	sess.OnBroadcast(func(b session.Broadcast) {
		if b.Error != "" {
			syncErr = b.Error
		}
	})

	if err := sess.LoadContent(ctx, string(markup)); err != nil {
		return fmt.Errorf("load markup: %w", err)
	}
	if syncErr != "" {
		return fmt.Errorf("source not rewritten: %s", syncErr)
	}

	updated, err := store.Read()
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Print(updated)
		return nil
	}
	if updated == string(source) {
		logger.Info("source already in sync", zap.String("path", cfg.Source.Path))
		return nil
	}
	if err := os.WriteFile(srcPath, []byte(updated), 0644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	logger.Info("source rewritten", zap.String("path", cfg.Source.Path))
	return nil
}

// showStatus prints the effective configuration. It works in an
// uninitialized workspace, so the registry is not opened here.
func showStatus(cmd *cobra.Command, args []string) error {
	cwd := workspace
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	cfg, err := config.Load(resolvePath(cwd, configPath))
	if err != nil {
		return err
	}

	fmt.Printf("livecanvas %s\n", cfg.Version)
	fmt.Printf("  workspace:  %s\n", cwd)
	fmt.Printf("  source:     %s (symbol %q)\n", cfg.Source.Path, cfg.Source.OwnSymbol)
	fmt.Printf("  registry:   %s (%s)\n", cfg.Registry.Path, cfg.Registry.Driver)
	fmt.Printf("  shared:     %s\n", cfg.Codegen.SharedModule)
	fmt.Printf("  mixin:      %s\n", cfg.Codegen.MixinModule)
	fmt.Printf("  debounce:   %s\n", cfg.GetDebounce())
	fmt.Printf("  watch:      %v\n", cfg.Source.Watch)
	return nil
}
