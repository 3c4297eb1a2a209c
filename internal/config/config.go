package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models dealflow.yml.
type Config struct {
	Business struct {
		Name          string `yaml:"name"`
		WalletAddress string `yaml:"wallet_address"`
		Currency      string `yaml:"currency"`
	} `yaml:"business"`
	Gate struct {
		MinOrder        float64            `yaml:"min_order"`
		MinMarginPct    float64            `yaml:"min_margin_pct"`
		PlatformFeePct  float64            `yaml:"platform_fee_pct"`
		PlatformFees    map[string]float64 `yaml:"platform_fees"`
		LaborBaselines  map[string]float64 `yaml:"labor_baselines"`
		LaborCostFactor float64            `yaml:"labor_cost_factor"`
		SuggestMarkup   float64            `yaml:"suggest_markup"`
		SuggestRound    float64            `yaml:"suggest_round"`
	} `yaml:"gate"`
	Thresholds struct {
		ClarifyConfidence float64 `yaml:"clarify_confidence"`
		QAScore           int     `yaml:"qa_score"`
	} `yaml:"thresholds"`
	Payments struct {
		PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
		CallTimeoutSeconds  int     `yaml:"call_timeout_seconds"`
		TolerancePct        float64 `yaml:"tolerance_pct"`
	} `yaml:"payments"`
	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
		DevLogin  bool   `yaml:"dev_login"`
	} `yaml:"server"`
}

// Load reads config from the workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Gate.MinOrder < 0 {
		return fmt.Errorf("config.gate.min_order must not be negative")
	}
	if c.Gate.MinMarginPct < 0 || c.Gate.MinMarginPct > 100 {
		return fmt.Errorf("config.gate.min_margin_pct must be within 0..100")
	}
	if c.Gate.PlatformFeePct < 0 || c.Gate.PlatformFeePct >= 1 {
		return fmt.Errorf("config.gate.platform_fee_pct must be a fraction within 0..1")
	}
	for platform, fee := range c.Gate.PlatformFees {
		if platform == "" {
			return fmt.Errorf("config.gate.platform_fees contains empty platform name")
		}
		if fee < 0 || fee >= 1 {
			return fmt.Errorf("platform fee for %s must be a fraction within 0..1", platform)
		}
	}
	for _, level := range []string{"low", "medium", "high"} {
		if _, ok := c.Gate.LaborBaselines[level]; !ok {
			return fmt.Errorf("config.gate.labor_baselines must define %s", level)
		}
	}
	if c.Gate.LaborCostFactor <= 0 {
		return fmt.Errorf("config.gate.labor_cost_factor must be positive")
	}
	if c.Gate.SuggestMarkup <= 1 {
		return fmt.Errorf("config.gate.suggest_markup must be greater than 1")
	}
	if c.Gate.SuggestRound <= 0 {
		return fmt.Errorf("config.gate.suggest_round must be positive")
	}
	if c.Thresholds.ClarifyConfidence < 0 || c.Thresholds.ClarifyConfidence > 1 {
		return fmt.Errorf("config.thresholds.clarify_confidence must be within 0..1")
	}
	if c.Thresholds.QAScore < 0 || c.Thresholds.QAScore > 100 {
		return fmt.Errorf("config.thresholds.qa_score must be within 0..100")
	}
	if c.Payments.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config.payments.poll_interval_seconds must be positive")
	}
	if c.Payments.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("config.payments.call_timeout_seconds must be positive")
	}
	if c.Payments.TolerancePct < 0 || c.Payments.TolerancePct > 100 {
		return fmt.Errorf("config.payments.tolerance_pct must be within 0..100")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "dealflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Fields absent
// from the YAML keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `business:
  name: dealflow
  wallet_address: ""
  currency: USD

gate:
  # Leads below this budget are declined outright.
  min_order: 50
  # Margin floor; below it the gate proposes a counter-offer.
  min_margin_pct: 20
  # Fallback marketplace cut when the platform is not listed below.
  platform_fee_pct: 0.20
  platform_fees:
    upwork: 0.20
    fiverr: 0.20
    direct: 0.05
  labor_baselines:
    low: 50
    medium: 150
    high: 400
  labor_cost_factor: 0.3
  suggest_markup: 1.3
  suggest_round: 10

thresholds:
  clarify_confidence: 0.7
  qa_score: 70

payments:
  poll_interval_seconds: 300
  call_timeout_seconds: 10
  tolerance_pct: 2

server:
  addr: ":8931"
  jwt_secret: ""
  dev_login: false
`
