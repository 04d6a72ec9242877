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
	dumpDir     *string
	startSource *string
	policy      *string
)

// receiveCmd represents the receive command
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "connect to a sender and measure its blocks",
	Long: `receive connects to the sender, parses the framed block stream and reports the
completion time of every block until the sender closes the connection or the
idle timeout expires.`,
	Run: ExecuteReceive,
}

func init() {
	RootCmd.AddCommand(receiveCmd)

	dumpDir = receiveCmd.Flags().StringP("dump", "d", "", "write every received chunk into this directory")
	startSource = receiveCmd.Flags().String("start", "", "BCT origin: header or arrival")
	policy = receiveCmd.Flags().String("on-framing-error", "", "abort or resync")
}

func ExecuteReceive(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Println(err)
		cmd.Usage()
		os.Exit(2)
	}
	if cmd.Flags().Changed("dump") {
		cfg.DumpDir = *dumpDir
	}
	if cmd.Flags().Changed("start") {
		cfg.StartSource = *startSource
	}
	if cmd.Flags().Changed("on-framing-error") {
		cfg.FramingPolicy = *policy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := bootstrap.RunReceiver(ctx, cfg)
	fmt.Print(utils.FormatSummaryLine(report.Summary))
	if err != nil {
		log.Printf("receive failed: %v", err)
		os.Exit(1)
	}
}
