package config

import "fmt"

// Validator validates a loaded Config comprehensively, failing fast on the
// first problem found, mirroring the teacher's ValidateAll ordering
// (infrastructure first, then each stage's own section).
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs struct-tag validation followed by cross-field checks,
// in dependency order: queue → redis → elasticsearch → receiver → module1
// → module2 → module3 → database.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := v.validateRequired("redis", v.cfg.Redis); err != nil {
		return err
	}
	if err := v.validateRequired("elasticsearch", v.cfg.Elasticsearch); err != nil {
		return err
	}
	if err := v.validateRequired("receiver", v.cfg.Receiver); err != nil {
		return err
	}
	if err := v.validateRequired("module1", v.cfg.Module1); err != nil {
		return err
	}
	if err := v.validateModule1Weights(); err != nil {
		return err
	}
	if err := v.validateModule1Thresholds(); err != nil {
		return err
	}
	if err := v.validateRequired("module2", v.cfg.Module2); err != nil {
		return err
	}
	if err := v.validateRequired("module3", v.cfg.Module3); err != nil {
		return err
	}
	if v.cfg.Database != nil {
		if err := validatorInstance.Struct(v.cfg.Database); err != nil {
			return NewValidationError("database", "database", "", err)
		}
	}
	if v.cfg.HealthAPI != nil {
		if err := validatorInstance.Struct(v.cfg.HealthAPI); err != nil {
			return NewValidationError("healthapi", "healthapi", "", err)
		}
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return NewValidationError("queue", "queue", "", ErrMissingRequiredField)
	}
	if q.PollInterval <= 0 {
		return NewValidationError("queue", "queue", "poll_interval", ErrInvalidValue)
	}
	if q.PollIntervalJitter < 0 || q.PollIntervalJitter >= q.PollInterval {
		return NewValidationError("queue", "queue", "poll_interval_jitter", ErrInvalidValue)
	}
	if q.ShutdownTimeout <= 0 {
		return NewValidationError("queue", "queue", "shutdown_timeout", ErrInvalidValue)
	}
	return nil
}

// validateRequired runs go-playground struct-tag validation ("required",
// "min", "oneof", ...) against any non-nil section, and reports a nil
// section as a missing-required-field error.
func (v *Validator) validateRequired(component string, section any) error {
	if isNilSection(section) {
		return NewValidationError(component, component, "", ErrMissingRequiredField)
	}
	if err := validatorInstance.Struct(section); err != nil {
		return NewValidationError(component, component, "", err)
	}
	return nil
}

func isNilSection(section any) bool {
	switch s := section.(type) {
	case *RedisConfig:
		return s == nil
	case *ElasticsearchConfig:
		return s == nil
	case *ReceiverConfig:
		return s == nil
	case *Module1Config:
		return s == nil
	case *Module2Config:
		return s == nil
	case *Module3Config:
		return s == nil
	default:
		return section == nil
	}
}

func (v *Validator) validateModule1Weights() error {
	m := v.cfg.Module1
	sum := m.WeightFreq + m.WeightRule + m.WeightCtx + m.WeightRare
	if sum <= 0 {
		return NewValidationError("module1", "module1", "weights", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateModule1Thresholds() error {
	m := v.cfg.Module1
	if !(0 < m.ThresholdMedium && m.ThresholdMedium < m.ThresholdHigh && m.ThresholdHigh < m.ThresholdCritical && m.ThresholdCritical <= 100) {
		return NewValidationError("module1", "module1", "thresholds", ErrInvalidValue)
	}
	return nil
}
