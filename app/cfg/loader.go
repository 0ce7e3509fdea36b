package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/relay.db" description:"Path of the sqlite fingerprint database"`
	StateFile string `long:"state-file" env:"STATE_FILE" default:"./data/relay.yml" description:"Path of the YAML file holding feeds, formats and templates"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key granting admin commands (optional)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of feeds polled concurrently"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Timeout of a single feed fetch in seconds"`
	MaxHashes         int    `long:"max-hashes" env:"MAX_HASHES_PER_FEED" default:"300" description:"Fingerprints remembered per feed"`
	ChannelMarker     string `long:"channel-marker" env:"CHANNEL_MARKER" default:"#" description:"Prefix every channel name must start with"`
	CommandPrefix     string `long:"command-prefix" env:"COMMAND_PREFIX" default:"." description:"Prefix shown in command synopses"`

	// Output configuration
	ShortenerURL string  `long:"shortener-url" env:"SHORTENER_URL" default:"https://tinyurl.com/api-create.php" description:"Endpoint creating short links"`
	ShortenerRPS float64 `long:"shortener-rps" env:"SHORTENER_RPS" default:"1" description:"Short link requests per second (0 disables the limit)"`
	WebhookURL   string  `long:"webhook-url" env:"WEBHOOK_URL" description:"URL receiving posts as JSON (optional, posts are logged otherwise)"`
	SafeFetch    bool    `long:"safe-fetch" env:"SAFE_FETCH" description:"Refuse to fetch from private and loopback addresses"`
	StripHTML    bool    `long:"strip-html" env:"STRIP_HTML" description:"Strip HTML from descriptions and summaries in posts"`

	// Logging configuration
	LogFile       string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file (optional)"`
	LogMaxSize    int    `long:"log-max-size" env:"LOG_MAX_SIZE" default:"10" description:"Size in megabytes at which the log file is rotated"`
	LogMaxBackups int    `long:"log-max-backups" env:"LOG_MAX_BACKUPS" default:"5" description:"Rotated log files to keep"`
	LogMaxAge     int    `long:"log-max-age" env:"LOG_MAX_AGE" default:"30" description:"Days to keep rotated log files"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Relay/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		StateFile:         raw.StateFile,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		FetchTimeout:      raw.FetchTimeout,
		MaxHashes:         raw.MaxHashes,
		ChannelMarker:     raw.ChannelMarker,
		CommandPrefix:     raw.CommandPrefix,
		ShortenerURL:      raw.ShortenerURL,
		ShortenerRPS:      raw.ShortenerRPS,
		WebhookURL:        raw.WebhookURL,
		SafeFetch:         raw.SafeFetch,
		StripHTML:         raw.StripHTML,
		LogFile:           raw.LogFile,
		LogMaxSize:        raw.LogMaxSize,
		LogMaxBackups:     raw.LogMaxBackups,
		LogMaxAge:         raw.LogMaxAge,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	positiveFields := map[string]int{
		"worker count":       raw.WorkerCount,
		"scheduler interval": raw.SchedulerInterval,
		"fetch timeout":      raw.FetchTimeout,
		"max hashes":         raw.MaxHashes,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if raw.ChannelMarker == "" {
		return fmt.Errorf("channel marker is required")
	}
	if raw.ShortenerRPS < 0 {
		return fmt.Errorf("shortener rps must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
