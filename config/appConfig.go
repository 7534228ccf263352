package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"luxemarket_api/config/values"
)

type Config interface {
}

type SupplierConfig interface {
	Configured() bool
}

// CJConfig holds credentials and endpoints for the CJ Dropshipping API.
type CJConfig struct {
	BaseURL     string `yaml:"base_url"`
	Email       string `yaml:"email"`
	ApiKey      string `yaml:"api_key"`
	MaxPageSize int    `yaml:"max_page_size"`
}

func (c CJConfig) Configured() bool {
	return c.Email != "" && c.ApiKey != ""
}

// AliExpressConfig holds credentials and endpoints for the AliExpress affiliate API.
type AliExpressConfig struct {
	BaseURL     string `yaml:"base_url"`
	AppKey      string `yaml:"app_key"`
	AppSecret   string `yaml:"app_secret"`
	MaxPageSize int    `yaml:"max_page_size"`
}

func (c AliExpressConfig) Configured() bool {
	return c.AppKey != "" && c.AppSecret != ""
}

type SuppliersConfig struct {
	CJ         CJConfig         `yaml:"cj"`
	AliExpress AliExpressConfig `yaml:"aliexpress"`
}

type AppConfig struct {
	Server    ServerConfig         `yaml:"server"`
	Postgres  PostgresConfig       `yaml:"postgres"`
	Redis     RedisConfig          `yaml:"redis"`
	Auth      AuthConfig           `yaml:"auth"`
	Import    ImportConfig         `yaml:"import"`
	Suppliers SuppliersConfig      `yaml:"suppliers"`
	Pricing   values.PricingValues `yaml:"pricing"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.Postgres.ApplyEnv()
	config.Redis.ApplyEnv()
	config.Auth.ApplyEnv()
	config.Import = config.Import.WithDefaults()
	config.Pricing = config.Pricing.WithDefaults()
	return config, nil
}
