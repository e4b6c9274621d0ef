package config

import (
	"os"
	"time"

	"aic-scoring-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	GroundTruth struct {
		CSVPath string `yaml:"csvPath"`
		TTL     string `yaml:"ttl"`
	} `yaml:"groundtruth"`
	Scoring struct {
		PMax       float64 `yaml:"pMax"`
		PBase      float64 `yaml:"pBase"`
		PPenalty   float64 `yaml:"pPenalty"`
		TimeLimit  float64 `yaml:"timeLimitSeconds"`
		BufferTime float64 `yaml:"bufferTimeSeconds"`
	} `yaml:"scoring"`
	Synthetic struct {
		Teams int `yaml:"teams"`
	} `yaml:"synthetic"`
	HomeTeam string `yaml:"homeTeam"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ScoringParams merges the configured scoring constants over the published
// defaults; zero values fall back.
func (c Config) ScoringParams() domain.ScoringParams {
	params := domain.DefaultScoringParams()
	if c.Scoring.PMax > 0 {
		params.PMax = c.Scoring.PMax
	}
	if c.Scoring.PBase > 0 {
		params.PBase = c.Scoring.PBase
	}
	if c.Scoring.PPenalty > 0 {
		params.PPenalty = c.Scoring.PPenalty
	}
	if c.Scoring.TimeLimit > 0 {
		params.TimeLimit = c.Scoring.TimeLimit
	}
	if c.Scoring.BufferTime > 0 {
		params.BufferTime = c.Scoring.BufferTime
	}
	return params
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
