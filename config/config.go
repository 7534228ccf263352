package config

import (
	"os"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (rc *RedisConfig) ApplyEnv() {
	rc.Addr = getEnv("REDIS_ADDR", rc.Addr)
	rc.Password = getEnv("REDIS_PASSWORD", rc.Password)
}

type AuthConfig struct {
	JwtSecret string `yaml:"jwt_secret"`
}

func (ac *AuthConfig) ApplyEnv() {
	ac.JwtSecret = getEnv("JWT_SECRET", ac.JwtSecret)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
