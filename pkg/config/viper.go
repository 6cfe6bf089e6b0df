// Package config initializes the application's configuration. It uses Viper
// to read settings from a config file and environment variables so every
// package sees one unified configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitConfig sets defaults, search paths, and environment bindings, then
// attempts to read the config file. A missing file is not an error; defaults
// and environment variables carry the run.
func InitConfig(cfgFile string) (fileUsed string, err error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/estate-harvester/")
		viper.AddConfigPath("$HOME/.estate-harvester")
	}

	// Crawl plan.
	viper.SetDefault("harvester.list_url_template", "https://www.hepsiemlak.com/satilik?page=%d")
	viper.SetDefault("harvester.detail_base_url", "https://www.hepsiemlak.com")
	viper.SetDefault("harvester.start_page", 1)
	viper.SetDefault("harvester.stop_page", 4)
	viper.SetDefault("harvester.max_attempts", 3)
	viper.SetDefault("harvester.cooldown_unit", "60s")
	viper.SetDefault("harvester.delay_min", "3s")
	viper.SetDefault("harvester.delay_max", "8s")
	viper.SetDefault("harvester.user_agent",
		"EstateHarvester/1.0 (+https://github.com/ekaval/estate-harvester)")
	viper.SetDefault("harvester.load_timeout", "45s")

	// Page-loading backend.
	viper.SetDefault("browser.mode", "chromedp")
	viper.SetDefault("browser.domain_qps", 0.5)
	viper.SetDefault("browser.selector_list", "div.list-view-content")
	viper.SetDefault("browser.selector_detail", "ul.adv-info-list li.spec-item")

	// Batch persistence.
	viper.SetDefault("sink.type", "fs")
	viper.SetDefault("sink.dir", "data/batches")
	viper.SetDefault("sink.table", "harvest_batches")
	viper.SetDefault("sink.prefix", "harvest")

	// Run artifacts and side channels.
	viper.SetDefault("export.csv", "data/harvest.csv")
	viper.SetDefault("server.enabled", false)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.topic", "harvest-runs")

	viper.SetDefault("log.development", false)
	viper.SetDefault("log.level", "")

	viper.SetEnvPrefix("HARVESTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return viper.ConfigFileUsed(), nil
}
