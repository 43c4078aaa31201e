package config

import "testing"

func TestProdDefaultsHaveNoCORSOrigins(t *testing.T) {
	t.Setenv("MODE", "prod")
	t.Setenv("CORS_ORIGINS", "")
	cfg := FromEnv()
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("prod must not default to any allowed origin, got %v", cfg.CORSOrigins)
	}
}

func TestDevDefaultsAllowLocalhost(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("CORS_ORIGINS", "")
	cfg := FromEnv()
	if cfg.Mode != ModeDev {
		t.Fatalf("empty MODE should default to dev, got %s", cfg.Mode)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("dev default origins: %v", cfg.CORSOrigins)
	}
}

func TestCSVOriginsAreTrimmed(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , https://b.example ,")
	cfg := FromEnv()
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.example" || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("origins not parsed: %v", cfg.CORSOrigins)
	}
}
