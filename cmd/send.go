package cmd

import (
	"BlockBench/bootstrap"
	"BlockBench/internal/platform/utils"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	schedule *string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "play a block schedule to one receiver",
	Long: `send listens on the configured address, accepts a single receiver and sends
every block of the schedule at its offset. The schedule is a file or an http(s) URL,
either JSON or the legacy "gap deadline size priority" text format.`,
	Run: ExecuteSend,
}

func init() {
	RootCmd.AddCommand(sendCmd)

	schedule = sendCmd.Flags().StringP("schedule", "s", "", "schedule file or URL")
}

func ExecuteSend(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Println(err)
		cmd.Usage()
		os.Exit(2)
	}
	if cmd.Flags().Changed("schedule") {
		cfg.Schedule = *schedule
	}
	if cfg.Schedule == "" {
		cmd.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := bootstrap.RunSender(ctx, cfg)
	fmt.Print(utils.FormatThroughputLine(report.Summary))
	if err != nil {
		log.Printf("send failed: %v", err)
		os.Exit(1)
	}
}
