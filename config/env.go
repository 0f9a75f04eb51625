package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment variable read by the CLI.
const EnvPrefix = "STORESCRAPER_"

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return i, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	v, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// FromEnv applies STORESCRAPER_* overrides to c.
func (c *Config) FromEnv() error {
	if v, ok := EnvString(EnvPrefix + "DIR"); ok {
		c.DataDir = v
	}
	if v, ok := EnvString(EnvPrefix + "USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := EnvString(EnvPrefix + "OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString(EnvPrefix + "METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString(EnvPrefix + "LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok, err := EnvInt(EnvPrefix + "PARALLEL"); err != nil {
		return err
	} else if ok {
		c.Parallelism = v
	}
	if v, ok, err := EnvInt(EnvPrefix + "MAX_PRODUCTS"); err != nil {
		return err
	} else if ok {
		c.MaxProductsPerStore = v
	}
	if v, ok, err := EnvDuration(EnvPrefix + "DELAY"); err != nil {
		return err
	} else if ok {
		c.RequestDelay = v
	}
	if v, ok, err := EnvDuration(EnvPrefix + "TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.Timeout = v
	}
	if v, ok, err := EnvBool(EnvPrefix + "AUTO_SAVE"); err != nil {
		return err
	} else if ok {
		c.AutoSaveResults = v
	}
	return nil
}
