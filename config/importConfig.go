package config

import "time"

// ImportConfig tunes the bulk import pipeline. Zero values are replaced
// with defaults by WithDefaults, so a partial yaml section is fine.
type ImportConfig struct {
	WorkerCount           int `yaml:"worker_count"`
	PageSize              int `yaml:"page_size"`
	PageDelayMs           int `yaml:"page_delay_ms"`
	MaxRetries            int `yaml:"max_retries"`
	RetryBaseDelayMs      int `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs       int `yaml:"retry_max_delay_ms"`
	RequestTimeoutSec     int `yaml:"request_timeout_sec"`
	ProgressFlushItems    int `yaml:"progress_flush_items"`
	ProgressFlushMs       int `yaml:"progress_flush_ms"`
	StoreFailureLimit     int `yaml:"store_failure_limit"`
	SupplierRatePerSecond int `yaml:"supplier_rate_per_second"`
}

func (c ImportConfig) WithDefaults() ImportConfig {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 5
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.PageDelayMs <= 0 {
		c.PageDelayMs = 2000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelayMs <= 0 {
		c.RetryBaseDelayMs = 500
	}
	if c.RetryMaxDelayMs <= 0 {
		c.RetryMaxDelayMs = 10000
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = 30
	}
	if c.ProgressFlushItems <= 0 {
		c.ProgressFlushItems = 10
	}
	if c.ProgressFlushMs <= 0 {
		c.ProgressFlushMs = 2000
	}
	if c.StoreFailureLimit <= 0 {
		c.StoreFailureLimit = 20
	}
	if c.SupplierRatePerSecond <= 0 {
		c.SupplierRatePerSecond = 3
	}
	return c
}

func (c ImportConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

func (c ImportConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c ImportConfig) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

func (c ImportConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c ImportConfig) ProgressFlushInterval() time.Duration {
	return time.Duration(c.ProgressFlushMs) * time.Millisecond
}
