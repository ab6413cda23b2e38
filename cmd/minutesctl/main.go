// Package main minutesctl 命令行入口：在进程内运行议事录流水线与存储操作
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"meeting-minutes-api/internal/config"
	einoobs "meeting-minutes-api/internal/observability/eino"
	"meeting-minutes-api/internal/wire"
	"meeting-minutes-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(defaultDeps()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultDeps() *commandDeps {
	return &commandDeps{
		Open: func(ctx context.Context) (minutesService, func(), error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, nil, fmt.Errorf("loading configuration: %w", err)
			}
			logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
			einoobs.Init()

			svc, cleanup, err := wire.InitializeMinutesService(ctx, cfg)
			if err != nil {
				return nil, nil, fmt.Errorf("initializing services: %w", err)
			}
			return svc, cleanup, nil
		},
	}
}

func newRootCommand(deps *commandDeps) *cobra.Command {
	root := &cobra.Command{
		Use:   "minutesctl",
		Short: "Generate and manage meeting minutes",
		Long: `minutesctl runs the meeting-minutes pipeline and storage operations in-process,
using the same configuration as the API gateway (configs/config.yaml, .env, environment).

Examples:
  # Generate minutes from a transcript file
  minutesctl process --text transcript.txt

  # Generate from audio and save the result
  minutesctl process --audio part1.mp3 --audio part2.mp3 --save

  # List saved minutes as JSON
  minutesctl list -o json

  # Export all minutes to a workbook
  minutesctl export -f minutes.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newProcessCommand(deps))
	root.AddCommand(newListCommand(deps))
	root.AddCommand(newDeleteCommand(deps))
	root.AddCommand(newExportCommand(deps))

	return root
}
