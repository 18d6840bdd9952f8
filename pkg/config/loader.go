package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Load reads the unified JSON configuration document at path, expands
// environment variable references, applies defaults, and validates the
// result. Mirrors the teacher's load-then-default-then-validate ordering.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{File: path, Err: ErrConfigNotFound}
		}
		return nil, &LoadError{File: path, Err: err}
	}

	raw = ExpandEnv(raw)

	cfg := &Config{path: path}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, &LoadError{File: path, Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
	}

	applyDefaults(cfg)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	return cfg, nil
}

// validatorInstance is shared across struct-tag validation calls; the
// go-playground validator is safe for concurrent use once constructed.
var validatorInstance = validator.New()
