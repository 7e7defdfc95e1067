package store

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Mode        string        `yaml:"mode" default:"LIVE" validate:"oneof=DRY_RUN LIVE"`
	ServiceName string        `yaml:"service_name" default:"AajeTradeBot"`
	Timezone    string        `yaml:"timezone" default:"Africa/Lagos"`
	StartDelay  time.Duration `yaml:"start_delay" default:"3s"`
	Assets      []string      `yaml:"assets" default:"[\"EUR/USD\",\"GBP/USD\",\"USD/JPY\",\"AUD/USD\",\"EUR/JPY\",\"USD/CAD\",\"BTC/USD\",\"ETH/USD\",\"USD/MXN\",\"USD/SGD\"]" validate:"required,min=1,dive,required"`

	Scan struct {
		Interval          time.Duration `yaml:"interval" default:"60s" validate:"gt=0"`
		InterAssetDelay   time.Duration `yaml:"inter_asset_delay" default:"20s" validate:"gte=0"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval" default:"59m" validate:"gt=0"`
		SessionLength     time.Duration `yaml:"session_length" default:"24h" validate:"gt=0"`
	} `yaml:"scan"`

	Market struct {
		MinBars          int           `yaml:"min_bars" default:"65" validate:"gte=35"`
		OutputSize       int           `yaml:"output_size" default:"200" validate:"gtefield=MinBars"`
		Interval         string        `yaml:"interval" default:"1min"`
		PrimaryPerMinute int           `yaml:"primary_per_minute" default:"8" validate:"gt=0"`
		QuotePerMinute   int           `yaml:"quote_per_minute" default:"60" validate:"gt=0"`
		RequestTimeout   time.Duration `yaml:"request_timeout" default:"15s" validate:"gt=0"`
		TransientRetries int           `yaml:"transient_retries" default:"2" validate:"gte=0,lte=5"`
		TwelveDataURL    string        `yaml:"twelvedata_url" default:"https://api.twelvedata.com"`
		FinnhubURL       string        `yaml:"finnhub_url" default:"https://finnhub.io/api/v1"`
		YahooURL         string        `yaml:"yahoo_url" default:"https://query1.finance.yahoo.com"`
	} `yaml:"market"`

	Credits struct {
		Ceiling       int   `yaml:"ceiling" default:"780" validate:"gt=0"`
		WarningLevels []int `yaml:"warning_levels" default:"[600,700]" validate:"dive,gt=0"`
	} `yaml:"credits"`

	Threshold struct {
		Base    int `yaml:"base" default:"82" validate:"gte=50,lte=100"`
		Floor   int `yaml:"floor" default:"72" validate:"gte=50,ltefield=Base"`
		Ceiling int `yaml:"ceiling" default:"88" validate:"gtefield=Base,lte=100"`
		Lower   int `yaml:"lower" default:"6" validate:"gte=0"`
		Raise   int `yaml:"raise" default:"4" validate:"gte=0"`
	} `yaml:"threshold"`

	Risk struct {
		LossLimit    int           `yaml:"loss_limit" default:"6" validate:"gt=0"`
		LossCooldown time.Duration `yaml:"loss_cooldown" default:"1h" validate:"gt=0"`
	} `yaml:"risk"`

	Verify struct {
		Delay time.Duration `yaml:"delay" default:"165s" validate:"gt=0"`
	} `yaml:"verify"`

	Retry struct {
		Attempts int           `yaml:"attempts" default:"2" validate:"gte=1,lte=5"`
		Floor    time.Duration `yaml:"floor" default:"20s" validate:"gt=0"`
		Cap      time.Duration `yaml:"cap" default:"90s" validate:"gtefield=Floor"`
	} `yaml:"retry"`

	LLM struct {
		Provider    string  `yaml:"provider" default:"OPENAI" validate:"oneof=OPENAI CLAUDE NOOP"`
		Endpoint    string  `yaml:"endpoint" default:"https://api.groq.com/openai/v1/chat/completions"`
		Model       string  `yaml:"model" default:"llama-3.1-8b-instant"`
		APIKeyEnv   string  `yaml:"api_key_env" default:"GROQ_API_KEY"`
		MaxTokens   int     `yaml:"max_tokens" default:"120" validate:"gt=0,lte=1024"`
		Temperature float32 `yaml:"temperature" default:"0.2" validate:"gte=0,lte=1"`
		System      string  `yaml:"system"`
	} `yaml:"llm"`

	News struct {
		Disabled  bool          `yaml:"disabled"`
		MaxItems  int           `yaml:"max_items" default:"5" validate:"gt=0,lte=20"`
		CacheTTL  time.Duration `yaml:"cache_ttl" default:"5m"`
		Fallbacks []NewsPage    `yaml:"fallbacks" validate:"dive"`
	} `yaml:"news"`

	Notify struct {
		Attempts int           `yaml:"attempts" default:"3" validate:"gte=1"`
		Delay    time.Duration `yaml:"delay" default:"2s"`
	} `yaml:"notify"`

	Server struct {
		Port string `yaml:"port" default:"8000"`
	} `yaml:"server"`
}

// NewsPage is an HTML page whose headline links are scraped when the news API fails.
type NewsPage struct {
	Category string `yaml:"category" validate:"oneof=forex crypto"`
	URL      string `yaml:"url" validate:"url"`
	Selector string `yaml:"selector" validate:"required"`
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Threshold.Floor > c.Threshold.Ceiling {
		return fmt.Errorf("threshold.floor %d above threshold.ceiling %d", c.Threshold.Floor, c.Threshold.Ceiling)
	}
	for _, lvl := range c.Credits.WarningLevels {
		if lvl >= c.Credits.Ceiling {
			return fmt.Errorf("credits.warning_levels: %d must be below ceiling %d", lvl, c.Credits.Ceiling)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	if c.Mode == "LIVE" && c.LLM.Provider != "NOOP" && c.LLM.APIKeyEnv == "" {
		return errors.New("llm.api_key_env cannot be empty in LIVE mode")
	}
	return nil
}

// Location returns the timezone used for message timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Default returns a Config populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
