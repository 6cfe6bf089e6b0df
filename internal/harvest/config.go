package harvest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a harvest run. All values
// originate from Viper so the engine can be configured via files, env vars,
// or CLI flags, while staying decoupled from Viper itself.
type Config struct {
	// ListURLTemplate is the discovery URL with a %d placeholder for the
	// page index, e.g. "https://site.example/listings?sort=date&page=%d".
	ListURLTemplate string
	// DetailBaseURL resolves relative detail references from summaries.
	DetailBaseURL string
	// StartPage is inclusive, StopPage exclusive.
	StartPage int
	StopPage  int

	MaxAttempts  int
	CooldownUnit time.Duration

	DelayMin time.Duration
	DelayMax time.Duration

	UserAgent   string
	LoadTimeout time.Duration
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListURLTemplate: v.GetString("harvester.list_url_template"),
		DetailBaseURL:   v.GetString("harvester.detail_base_url"),
		StartPage:       v.GetInt("harvester.start_page"),
		StopPage:        v.GetInt("harvester.stop_page"),
		MaxAttempts:     v.GetInt("harvester.max_attempts"),
		CooldownUnit:    v.GetDuration("harvester.cooldown_unit"),
		DelayMin:        v.GetDuration("harvester.delay_min"),
		DelayMax:        v.GetDuration("harvester.delay_max"),
		UserAgent:       v.GetString("harvester.user_agent"),
		LoadTimeout:     v.GetDuration("harvester.load_timeout"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if !strings.Contains(c.ListURLTemplate, "%d") {
		return fmt.Errorf("harvester.list_url_template must contain a %%d page placeholder")
	}
	if c.DetailBaseURL != "" {
		if _, err := url.Parse(c.DetailBaseURL); err != nil {
			return fmt.Errorf("harvester.detail_base_url is invalid: %w", err)
		}
	}
	if c.StartPage < 0 {
		return fmt.Errorf("harvester.start_page must be >= 0")
	}
	if c.StopPage <= c.StartPage {
		return fmt.Errorf("harvester.stop_page must be > start_page")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("harvester.max_attempts must be > 0")
	}
	if c.CooldownUnit <= 0 {
		return fmt.Errorf("harvester.cooldown_unit must be > 0")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("harvester politeness delay bounds are invalid")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("harvester.user_agent must be set")
	}
	if c.LoadTimeout <= 0 {
		return fmt.Errorf("harvester.load_timeout must be > 0")
	}
	return nil
}

// PageURL renders the discovery URL for a page index.
func (c Config) PageURL(pageIndex int) string {
	return fmt.Sprintf(c.ListURLTemplate, pageIndex)
}

// ResolveDetail resolves a summary's detail reference against the configured
// base URL. Absolute references pass through unchanged.
func (c Config) ResolveDetail(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty detail ref")
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse detail ref %q: %w", ref, err)
	}
	if parsed.IsAbs() || c.DetailBaseURL == "" {
		return parsed.String(), nil
	}
	base, err := url.Parse(c.DetailBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse detail base url: %w", err)
	}
	return base.ResolveReference(parsed).String(), nil
}

// Delays returns the politeness delay policy described by the config.
func (c Config) Delays() DelayPolicy {
	return DelayPolicy{Min: c.DelayMin, Max: c.DelayMax}
}
