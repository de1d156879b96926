// Package config provides configuration management for the LRS backtest service.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

const isoDateLayout = "2006-01-02"

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("provider", validateProvider)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(isoDateLayout, fl.Field().String())
	return err == nil
}

func validateProvider(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "yahoo", "csv":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	bt := cfg.Backtest

	if bt.DefaultMAPeriod < bt.MinMAPeriod || bt.DefaultMAPeriod > bt.MaxMAPeriod {
		return fmt.Errorf("default_ma_period %d outside [%d, %d]", bt.DefaultMAPeriod, bt.MinMAPeriod, bt.MaxMAPeriod)
	}

	if bt.DefaultLeverage < bt.MinLeverage || bt.DefaultLeverage > bt.MaxLeverage {
		return fmt.Errorf("default_leverage %g outside [%g, %g]", bt.DefaultLeverage, bt.MinLeverage, bt.MaxLeverage)
	}

	if bt.RollingWindow > bt.TradingDaysPerYear*10 {
		return fmt.Errorf("rolling_window cannot exceed ten years of trading days")
	}

	if cfg.Cache.WarmSchedule != "" {
		if !cfg.Cache.Enabled && !cfg.Database.Enabled {
			return fmt.Errorf("cache warm_schedule requires the cache or the database to be enabled")
		}
		if _, err := cron.ParseStandard(cfg.Cache.WarmSchedule); err != nil {
			return fmt.Errorf("invalid cache warm_schedule: %w", err)
		}
	}

	if cfg.Server.RequestTimeoutSeconds > cfg.Server.WriteTimeoutSeconds {
		return fmt.Errorf("request_timeout_seconds cannot exceed write_timeout_seconds")
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte", "gtefield":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "isodate":
			errMsg += fmt.Sprintf("- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value)
		case "provider":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: yahoo, csv\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
