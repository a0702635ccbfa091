package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultCapacity = 20
	DefaultPeriod   = time.Second
)

type Config struct {
	Tickers []string      `toml:"tickers"`
	Sampler SamplerConfig `toml:"sampler"`
	Quote   QuoteConfig   `toml:"quote"`
	Chart   ChartConfig   `toml:"chart"`
	Web     WebConfig     `toml:"web"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
}

type SamplerConfig struct {
	Capacity int      `toml:"capacity"`
	Period   Duration `toml:"period"`
	// Interval and Lookback are passed to the quote source, e.g. 1m bars over the last day.
	Interval         string   `toml:"interval"`
	Lookback         Duration `toml:"lookback"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
}

type QuoteConfig struct {
	Source     string   `toml:"source"`
	Timeout    Duration `toml:"timeout"`
	BinanceURL string   `toml:"binance_url"`
	OKXURL     string   `toml:"okx_url"`
}

type ChartConfig struct {
	Title    string `toml:"title"`
	HTMLPath string `toml:"html_path"`
	PNGPath  string `toml:"png_path"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
}

type WebConfig struct {
	Addr string `toml:"addr"`
}

type HistoryConfig struct {
	Enabled bool     `toml:"enabled"`
	Dir     string   `toml:"dir"`
	MaxAge  Duration `toml:"max_age"`
}

type LogConfig struct {
	Production bool `toml:"production"`
}

// Duration wraps time.Duration so TOML files can say "1s" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q not allowed", s)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	return &Config{
		Sampler: SamplerConfig{
			Capacity: DefaultCapacity,
			Period:   Duration{DefaultPeriod},
			Interval: "1m",
			Lookback: Duration{24 * time.Hour},
		},
		Quote: QuoteConfig{
			Source:     "yahoo",
			Timeout:    Duration{10 * time.Second},
			BinanceURL: "wss://ws-fapi.binance.com/ws-fapi/v1",
			OKXURL:     "wss://ws.okx.com:8443/ws/v5/public",
		},
		Chart: ChartConfig{
			Title:    "Stock Price Tracker",
			HTMLPath: ChartDir + "live.html",
			Width:    1200,
			Height:   800,
		},
		Web: WebConfig{
			Addr: ":8080",
		},
		History: HistoryConfig{
			Dir:    ChartDir + "samples/",
			MaxAge: Duration{7 * 24 * time.Hour},
		},
	}
}

// LoadConfig reads path. An empty path or a missing file yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Sampler.Capacity < 1 {
		return fmt.Errorf("sampler.capacity must be at least 1, got %d", c.Sampler.Capacity)
	}
	if c.Sampler.Period.Duration <= 0 {
		return fmt.Errorf("sampler.period must be positive")
	}
	if c.Sampler.FetchConcurrency < 0 {
		return fmt.Errorf("sampler.fetch_concurrency must not be negative")
	}
	switch strings.ToLower(c.Quote.Source) {
	case "yahoo", "binance", "okx":
	default:
		return fmt.Errorf("unknown quote.source %q", c.Quote.Source)
	}
	if c.History.Enabled && c.History.Dir == "" {
		return fmt.Errorf("history.dir is required when history is enabled")
	}
	return nil
}
