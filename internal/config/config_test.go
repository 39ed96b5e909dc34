package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// No config.yaml in a fresh directory.
	t.Chdir(t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", c.Server.Port)
	}
	if c.Database.Driver != "sqlite" || c.Database.DSN != "./data/tripmate.db" {
		t.Errorf("Database = %+v", c.Database)
	}
	if c.Auth.Mode != AuthModeRemote || c.Auth.Timeout != 5*time.Second {
		t.Errorf("Auth = %+v", c.Auth)
	}
	if c.Log.Level != "info" || c.Log.Format != "tint" {
		t.Errorf("Log = %+v", c.Log)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripmate.yaml")
	content := `
server:
  port: 9000
database:
  driver: postgres
  dsn: postgres://localhost/tripmate?sslmode=disable
auth:
  mode: jwt
  jwt_secret: from-file
  timeout: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("TRIPMATE_SERVER_PORT", "9100")
	t.Setenv("TRIPMATE_LOG_LEVEL", "debug")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Server.Port != 9100 {
		t.Errorf("env override: Server.Port = %d, want 9100", c.Server.Port)
	}
	if c.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", c.Database.Driver)
	}
	if c.Auth.Mode != AuthModeJWT || c.Auth.JWTSecret != "from-file" || c.Auth.Timeout != 2*time.Second {
		t.Errorf("Auth = %+v", c.Auth)
	}
	if c.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", c.Log.Level)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite", DSN: "x.db"},
			Auth:     AuthConfig{Mode: AuthModeRemote, ServiceURL: "http://auth"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"remote without url", func(c *Config) { c.Auth.ServiceURL = "" }, true},
		{"jwt without secret", func(c *Config) { c.Auth.Mode = AuthModeJWT }, true},
		{"jwt with secret", func(c *Config) { c.Auth.Mode = AuthModeJWT; c.Auth.JWTSecret = "s" }, false},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "ldap" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
