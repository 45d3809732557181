package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their YAML key so messages match what the
// operator wrote in the config file.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// settingFlags maps config keys to the command-line flag that sets them.
var settingFlags = map[string]string{
	"target.host":                     "-H",
	"target.community":                "-c",
	"target.port":                     "-p",
	"target.version":                  "-P",
	"target.timeout_seconds":          "-t",
	"target.security_level":           "-l",
	"target.auth_protocol":            "-a",
	"target.auth_password":            "-A",
	"target.priv_protocol":            "-x",
	"target.priv_password":            "-X",
	"thresholds.failed_tolerance":     "--failed-tolerance",
	"thresholds.min_members":          "--min-members",
	"thresholds.require_standby":      "--require-standby",
	"thresholds.ignore_ring":          "--ignore-ring",
	"thresholds.unreachable_critical": "--unreachable-critical",
}

// InvalidSetting is one rejected setting of the check.
type InvalidSetting struct {
	Key     string // config file key, e.g. target.host
	Flag    string // equivalent flag, empty when there is none
	Message string
}

func (s InvalidSetting) String() string {
	if s.Flag == "" {
		return fmt.Sprintf("%s (set %s)", s.Message, s.Key)
	}
	return fmt.Sprintf("%s (set %s or %s)", s.Message, s.Flag, s.Key)
}

// InvalidSettings lists every setting that keeps the check from running.
type InvalidSettings []InvalidSetting

func (s InvalidSettings) Error() string {
	parts := make([]string, len(s))
	for i, is := range s {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct checks the tag rules on the whole tree, then the
// cross-field rules of each section.
func ValidateStruct(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		invalid := make(InvalidSettings, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			key := settingKey(e)
			invalid = append(invalid, InvalidSetting{
				Key:     key,
				Flag:    settingFlags[key],
				Message: describe(e),
			})
		}
		return invalid
	}

	sections := []interface{}{&cfg.Target, &cfg.Thresholds, &cfg.Logging}
	for _, s := range sections {
		if v, ok := s.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// settingKey drops the root type from the namespace: Config.target.host
// becomes target.host.
func settingKey(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}
