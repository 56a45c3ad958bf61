package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/apiserver"
	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/engine/coordinator"
	"github.com/gloamlab/gloam/internal/engine/lifecycle"
	"github.com/gloamlab/gloam/internal/engine/notifier"
	"github.com/gloamlab/gloam/internal/engine/state"
	"github.com/gloamlab/gloam/internal/engine/storage"
	"github.com/gloamlab/gloam/internal/engine/variant"
	"github.com/gloamlab/gloam/internal/world"
	"github.com/gloamlab/gloam/internal/world/content"
	worlddb "github.com/gloamlab/gloam/internal/world/database"
	"github.com/gloamlab/gloam/pkg/helper"
	"github.com/gloamlab/gloam/pkg/logger"
	"github.com/gloamlab/gloam/pkg/metrics"
	"github.com/gloamlab/gloam/pkg/trace"
	"github.com/gloamlab/gloam/pkg/utils"
	"github.com/gloamlab/gloam/pkg/version"
)

var (
	configPath string
	pidFile    string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gloamd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gloamd version %s\n", version.Get())
		},
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Validate the configuration and exit",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, cfgPath, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Printf("failed to load configuration %s: %v\n", cfgPath, err)
				os.Exit(1)
			}
			if err := config.ValidateConfig(cfg, cfgPath); err != nil {
				fmt.Printf("configuration test failed:\n\n%v\n", err)
				os.Exit(1)
			}
			fmt.Printf("configuration %s is valid\n", cfgPath)
		},
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Ask a running gloamd to sweep inactive sessions now",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, cfgPath, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Printf("failed to load configuration %s: %v\n", cfgPath, err)
				os.Exit(1)
			}

			sigCfg := cfg.Engine.Notifier.Signal
			sigCfg.PID = utils.FirstNonEmpty(pidFile, sigCfg.PID)
			if sigCfg.PID == "" {
				sigCfg.PID = cfg.PID
			}
			if sigCfg.PID == "" {
				fmt.Println("no PID file configured; set pid in the config or pass --pid")
				os.Exit(1)
			}
			sigCfg.PID = helper.GetPIDPath(sigCfg.PID)

			n := notifier.NewSignalNotifier(cmd.Context(), zap.NewNop(), sigCfg, config.RoleSender)
			if err := n.Notify(cmd.Context(), notifier.NewEvent(notifier.EventSweepRequested, "", 0)); err != nil {
				fmt.Printf("failed to request sweep: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("sweep requested via %s\n", sigCfg.PID)
		},
	}

	rootCmd = &cobra.Command{
		Use:   "gloamd",
		Short: "Gloam session engine",
		Long:  `gloamd coordinates asynchronous multiplayer sessions, turn submission, and world telemetry`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", cnst.GloamdYaml, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pid", "", "path to PID file, overrides the configured one")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(sweepCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration %s: %v", cfgPath, err)
	}
	if err := config.ValidateConfig(cfg, cfgPath); err != nil {
		log.Fatalf("invalid configuration:\n\n%v", err)
	}
	cfg.PID = utils.FirstNonEmpty(pidFile, cfg.PID)

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = lg.Sync()
	}()

	lg.Info("starting gloamd",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	if cfg.PID != "" {
		pm := utils.NewPIDManagerFromConfig(cfg.PID)
		if err := pm.WritePID(); err != nil {
			lg.Fatal("failed to write PID file",
				zap.String("path", cfg.PID),
				zap.Error(err))
		}
		defer func() {
			_ = pm.RemovePID()
		}()
		lg.Info("wrote PID file", zap.String("path", cfg.PID))
	}

	ctx := context.Background()

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		lg.Fatal("failed to initialize tracing", zap.Error(err))
	}

	m := metrics.New(cfg.Metrics)

	store, err := storage.NewDBStore(lg, &cfg.Engine.Database)
	if err != nil {
		lg.Fatal("failed to initialize session storage", zap.Error(err))
	}
	defer func() {
		_ = store.Close()
	}()

	stateStore, err := state.NewStore(lg, &cfg.Engine.State)
	if err != nil {
		lg.Fatal("failed to initialize state store", zap.Error(err))
	}

	notif, err := notifier.NewNotifier(ctx, lg, &cfg.Engine.Notifier)
	if err != nil {
		lg.Fatal("failed to initialize notifier", zap.Error(err))
	}

	variants := cfg.Engine.Variants
	if cfg.Engine.VariantsDir != "" {
		variants, err = variant.NewLoader(lg).LoadDir(cfg.Engine.VariantsDir, variants)
		if err != nil {
			lg.Fatal("failed to load variant bundles",
				zap.String("dir", cfg.Engine.VariantsDir),
				zap.Error(err))
		}
	}
	assigner, err := variant.NewAssigner(variants)
	if err != nil {
		lg.Fatal("failed to build variant assigner", zap.Error(err))
	}

	coord := coordinator.New(lg, store, stateStore, notif, m, &cfg.Engine)

	lc := lifecycle.New(lg, store, stateStore, assigner, notif, m, &cfg.Engine)
	if err := lc.Start(); err != nil {
		lg.Fatal("failed to start lifecycle manager", zap.Error(err))
	}

	var worldSvc *world.Service
	var worldDB worlddb.Database
	if cfg.World.Enabled {
		worldDB, err = worlddb.NewDatabase(&cfg.World.Database)
		if err != nil {
			lg.Fatal("failed to initialize world database", zap.Error(err))
		}
		wc, err := content.Load(lg, cfg.World.ContentDir)
		if err != nil {
			lg.Fatal("failed to load world content",
				zap.String("dir", cfg.World.ContentDir),
				zap.Error(err))
		}
		worldSvc = world.New(lg, worldDB, wc, m, &cfg.World)
		if err := worldSvc.Start(); err != nil {
			lg.Fatal("failed to start world service", zap.Error(err))
		}
	}

	srv := apiserver.NewServer(lg, cfg, coord, lc, worldSvc, m)
	srv.Start()
	lg.Info("gloamd is ready", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down gloamd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("failed to shutdown server", zap.Error(err))
	}
	if worldSvc != nil {
		if err := worldSvc.Stop(); err != nil {
			lg.Error("failed to stop world service", zap.Error(err))
		}
	}
	if worldDB != nil {
		if err := worldDB.Close(); err != nil {
			lg.Error("failed to close world database", zap.Error(err))
		}
	}
	if err := lc.Stop(); err != nil {
		lg.Error("failed to stop lifecycle manager", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		lg.Error("failed to shutdown tracing", zap.Error(err))
	}

	lg.Info("gloamd stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
