package cmd

import (
	"BlockBench/internal/platform/config"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "blockbench",
	Short: "deadline-aware block transfer benchmark",
	Long: `blockbench plays a schedule of blocks over one TCP connection and measures
the completion time of every block on both ends.

Settings come from the environment (or a .env file) and can be overridden by flags.`,
}

var (
	addr        *string
	port        *int
	framingName *string
	idleTimeout *string
	ccAlgorithm *string
	reportFile  *string
	recordLog   *string
	httpPort    *int
	zmqPubPort  *int
	logLevel    *string
)

func init() {
	flags := RootCmd.PersistentFlags()
	addr = flags.StringP("addr", "a", "", "address to listen on (send) or connect to (receive)")
	port = flags.IntP("port", "p", 0, "TCP port")
	framingName = flags.StringP("framing", "f", "", "header framing: binary or text")
	idleTimeout = flags.String("idle-timeout", "", "end the session after this long without progress")
	ccAlgorithm = flags.String("cc", "", "TCP congestion control algorithm")
	reportFile = flags.StringP("report", "r", "", "per-block report file (.csv for CSV)")
	recordLog = flags.String("record-log", "", "binary record log to append to")
	httpPort = flags.Int("http-port", 0, "serve the report API on this port")
	zmqPubPort = flags.Int("zmq-pub-port", 0, "publish records on a ZeroMQ PUB socket on this port")
	logLevel = flags.String("log-level", "", "debug, info or error")
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies every flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.LoadConfig()
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = *addr
	}
	if flags.Changed("port") {
		cfg.Port = *port
	}
	if flags.Changed("framing") {
		cfg.Framing = *framingName
	}
	if flags.Changed("idle-timeout") {
		d, err := config.ParseDuration(*idleTimeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid --idle-timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if flags.Changed("cc") {
		cfg.CCAlgorithm = *ccAlgorithm
	}
	if flags.Changed("report") {
		cfg.ReportFile = *reportFile
	}
	if flags.Changed("record-log") {
		cfg.RecordLog = *recordLog
	}
	if flags.Changed("http-port") {
		cfg.HttpPort = *httpPort
	}
	if flags.Changed("zmq-pub-port") {
		cfg.ZmqPubPort = *zmqPubPort
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
