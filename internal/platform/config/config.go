package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAddr         = "127.0.0.1"
	DefaultPort         = 5555
	DefaultIdleTimeout  = 5 * time.Second
	DefaultMaxBlockSize = 64 << 20
	DefaultReportFile   = "client.log"
)

type Config struct {
	Addr          string
	Port          int
	Schedule      string
	Framing       string
	FramingPolicy string
	MaxBlockSize  uint64
	IdleTimeout   time.Duration
	CCAlgorithm   string
	DumpDir       string
	ReportFile    string
	RecordLog     string
	ZmqPubPort    int
	HttpPort      int
	CollectorUrl  string
	LogLevel      string
	StartSource   string
}

func LoadConfig() Config {
	godotenv.Load(".env")
	return Config{
		Addr:          getString("ADDR", DefaultAddr),
		Port:          getInt("PORT", DefaultPort),
		Schedule:      os.Getenv("SCHEDULE"),
		Framing:       getString("FRAMING", "binary"),
		FramingPolicy: getString("FRAMING_POLICY", "abort"),
		MaxBlockSize:  uint64(getInt("MAX_BLOCK_SIZE", DefaultMaxBlockSize)),
		IdleTimeout:   getDuration("IDLE_TIMEOUT", DefaultIdleTimeout),
		CCAlgorithm:   os.Getenv("CC_ALGORITHM"),
		DumpDir:       os.Getenv("DUMP_DIR"),
		ReportFile:    getString("REPORT_FILE", DefaultReportFile),
		RecordLog:     os.Getenv("RECORD_LOG"),
		ZmqPubPort:    getInt("ZMQ_PUB_PORT", 0),
		HttpPort:      getInt("HTTP_PORT", 0),
		CollectorUrl:  os.Getenv("COLLECTOR_URL"),
		LogLevel:      getString("LOG_LEVEL", "info"),
		StartSource:   getString("START_SOURCE", "header"),
	}
}

// ArrivalStart reports whether receiver BCT is measured from header arrival.
func (c Config) ArrivalStart() bool {
	return c.StartSource == "arrival"
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// ParseDuration accepts Go durations ("1500ms") or a bare number of seconds.
func ParseDuration(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a duration: %q", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
