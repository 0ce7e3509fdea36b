package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath    string
	StateFile string

	// Application configuration
	Port              string
	APIAccessKey      string
	WorkerCount       int
	SchedulerInterval int
	FetchTimeout      int
	MaxHashes         int
	ChannelMarker     string
	CommandPrefix     string

	// Output configuration
	ShortenerURL string
	ShortenerRPS float64
	WebhookURL   string
	SafeFetch    bool
	StripHTML    bool

	// Logging configuration
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) Interval() time.Duration {
	return time.Duration(c.SchedulerInterval) * time.Second
}

func (c *Cfg) Timeout() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}
