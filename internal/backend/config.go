package backend

import (
	"errors"
	"fmt"

	"financas/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         t,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		AutoMigrate:  true,
		SeedFile:     appConfig.SeedFile,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case Postgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}
	case Memory:
		// an empty seed file means an empty store
	}
	return nil
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{SQLite, Postgres, Memory}
}

// TypeStrings returns all valid backend type strings.
func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
