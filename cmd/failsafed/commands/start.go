package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/config"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/consolering"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/envstore"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/handlers"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/interpreter"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/logger"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/metrics"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/server"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/storage"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/sysreboot"
	"github.com/mitsukileung/bl-mt798x-dhcpd/internal/upload"
)

const (
	consoleRingCapacity = 16 * 1024
	envRecordDataLen    = 512
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the recovery server",
	Long: `Start the failsafe recovery HTTP server and, unless disabled in
configuration, its DHCPv4 responder. Runs in the foreground until the
process receives SIGINT/SIGTERM or the /reboot endpoint is hit.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	log := logger.With("component", "failsafed")

	log.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	facade := buildStorageFacade(cfg)

	var envSave envstore.Saver
	if target, err := facade.Open("mtd", "env"); err == nil {
		envSave = func(blob []byte) error {
			return target.WriteRange(0, blob)
		}
	} else {
		log.Warn("no env partition configured, environment will not persist", "error", err)
	}
	env := envstore.New(map[string]string{
		"bootdelay": "3",
		"prompt":    "MTK> ",
	}, envRecordDataLen, envSave)

	deps := &handlers.Deps{
		Config:      cfg,
		Storage:     facade,
		Env:         env,
		Console:     consolering.New(consoleRingCapacity),
		Upload:      &upload.Context{},
		Metrics:     metrics.New(nil),
		Rebooter:    sysreboot.Linux{},
		Interpreter: interpreter.Null{},
		Log:         log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps.RequestReboot = func() {
		log.Warn("reboot requested, restarting board")
		if err := deps.Rebooter.Reboot(); err != nil {
			log.Error("reboot failed", "error", err)
		}
		cancel()
	}

	srv, err := server.New(cfg, deps, log)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	srv.Run(ctx)
	return nil
}

// buildStorageFacade wires the configured partition table onto the
// in-memory reference flash/block devices (see internal/storage's
// FlashDevice/BlockDevice doc comments: the real MTD/MMC drivers are out
// of scope for this repository).
func buildStorageFacade(cfg *config.Config) *storage.Facade {
	flash := storage.NewMemFlash(cfg.Storage.MTDDevicePath, cfg.Storage.MTDSizeBytes, cfg.Storage.EraseSize)
	block := storage.NewMemBlock(cfg.Storage.MMCDevicePath, cfg.Storage.MMCSizeBytes)

	flashParts := map[string]storage.Partition{}
	blockParts := map[string]storage.Partition{}
	for _, p := range cfg.Storage.Partitions {
		part := storage.Partition{Name: p.Name, Offset: p.Offset, Size: p.Size}
		if p.Kind == "mmc" {
			blockParts[p.Name] = part
		} else {
			flashParts[p.Name] = part
		}
	}

	return storage.NewFacade(flash, flashParts, block, blockParts)
}

func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	return "built-in defaults"
}
