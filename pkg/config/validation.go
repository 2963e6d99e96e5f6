package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags plus the custom
// rules that cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.WebDAV.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Blob.Type == "s3" && cfg.Blob.S3 == nil {
		return fmt.Errorf("blob: type is s3 but no s3 section is configured")
	}
	if cfg.Metadata.Type == "dynamo" && cfg.Metadata.Dynamo == nil {
		return fmt.Errorf("metadata: type is dynamo but no dynamo section is configured")
	}
	if cfg.Metadata.Type == "badger" && cfg.Metadata.Badger == nil {
		return fmt.Errorf("metadata: type is badger but no badger section is configured")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
