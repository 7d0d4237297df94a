package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const Name = "fanout"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host            string
		HttpPort        int     `yaml:"httpPort"`
		SslDomain       string  `yaml:"sslDomain"`
		WithAp          bool    `yaml:"withAp"`
		ServerActorName string  `yaml:"serverActorName"`
		DatabasePath    string  `yaml:"databasePath"`
		InboxRateLimit  float64 `yaml:"inboxRateLimit"`
		InboxBurst      int     `yaml:"inboxBurst"`
		GlobalRateLimit float64 `yaml:"globalRateLimit"`
		GlobalBurst     int     `yaml:"globalBurst"`
		FeedLimit       int     `yaml:"feedLimit"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := filepath.Join(configDir, ConfigFileName)
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	applyEnv(c)
	applyDefaults(c)

	return c, nil
}

func applyEnv(c *AppConfig) {
	if v := os.Getenv("FANOUT_HOST"); v != "" {
		c.Conf.Host = v
	}

	if v := os.Getenv("FANOUT_HTTPPORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: ignoring FANOUT_HTTPPORT=%q: %v", v, err)
		} else {
			c.Conf.HttpPort = port
		}
	}

	if v := os.Getenv("FANOUT_SSLDOMAIN"); v != "" {
		c.Conf.SslDomain = v
	}

	if os.Getenv("FANOUT_WITH_AP") == "true" {
		c.Conf.WithAp = true
	}

	if v := os.Getenv("FANOUT_SERVER_ACTOR"); v != "" {
		c.Conf.ServerActorName = v
	}

	if v := os.Getenv("FANOUT_DB_PATH"); v != "" {
		c.Conf.DatabasePath = v
	}
}

func applyDefaults(c *AppConfig) {
	if c.Conf.ServerActorName == "" {
		c.Conf.ServerActorName = "peertube"
	}
	if c.Conf.InboxRateLimit <= 0 {
		c.Conf.InboxRateLimit = 5
	}
	if c.Conf.InboxBurst <= 0 {
		c.Conf.InboxBurst = 10
	}
	if c.Conf.GlobalRateLimit <= 0 {
		c.Conf.GlobalRateLimit = 10
	}
	if c.Conf.GlobalBurst <= 0 {
		c.Conf.GlobalBurst = 20
	}
	if c.Conf.FeedLimit <= 0 {
		c.Conf.FeedLimit = 50
	}
}
