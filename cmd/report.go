package cmd

import (
	"BlockBench/internal/application/service"
	"BlockBench/internal/platform/utils"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <record-log>",
	Short: "print the blocks stored in a record log",
	Long:  `report replays a binary record log and prints one line per block followed by the recomputed totals.`,
	Run:   ExecuteReport,
}

func init() {
	RootCmd.AddCommand(reportCmd)
}

func ExecuteReport(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		cmd.Usage()
		return
	}
	report, err := service.ReplayRecordLog(args[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, rec := range report.Records {
		fmt.Print(utils.FormatRecordLine(rec))
	}
	fmt.Print(utils.FormatSummaryLine(report.Summary))
}
