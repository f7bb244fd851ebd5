package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted koanf path into the config (e.g. "output.kind").
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ConfigError is returned when configuration cannot be loaded or carries at
// least one error-severity issue. It is fatal and raised before any data is
// processed.
type ConfigError struct {
	Issues []Issue
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "config: " + e.Err.Error()
	}
	msgs := make([]string, 0, len(e.Issues))
	for _, iss := range e.Issues {
		if iss.Severity == SeverityError {
			msgs = append(msgs, iss.Path+": "+iss.Message)
		}
	}
	return "config: " + strings.Join(msgs, "; ")
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Err returns a *ConfigError when issues contain an error-severity entry.
func Err(issues []Issue) error {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return &ConfigError{Issues: issues}
		}
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator reports field paths using koanf tag names.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate lints c. It runs the struct-tag rules first, then cross-field
// checks that depend on the selected sink and metrics backend. Callers decide
// whether warnings are fatal; Err treats only errors as fatal.
func Validate(c Config) []Issue {
	issues := structIssues(c)
	issues = append(issues, validateOutput(c.Output)...)
	issues = append(issues, validateTransform(c.Transform)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func structIssues(c Config) []Issue {
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     fieldPath(fe.Namespace()),
			Message:  describe(fe),
		})
	}
	return issues
}

// fieldPath strips the root struct name: "Config.output.kind" -> "output.kind".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "required_without":
		return "either root or manifest must be set"
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fmt.Sprint(fe.Value()), fe.Param())
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// validateOutput checks the settings each sink kind needs.
func validateOutput(o Output) []Issue {
	var issues []Issue
	need := func(path, value, why string) {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: why})
		}
	}

	switch o.Kind {
	case "parquet", "duckdb":
		need("output.root", o.Root, o.Kind+" sink requires an output directory")
	case "s3":
		need("output.bucket", o.Bucket, "s3 sink requires a bucket")
		if strings.TrimSpace(o.Root) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "output.root",
				Message:  "s3 sink stages files in the system temp directory when root is empty",
			})
		}
	case "postgres", "mssql", "sqlite":
		need("output.dsn", o.DSN, o.Kind+" sink requires a dsn")
	case "memory":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.kind",
			Message:  "memory sink discards all tables when the process exits",
		})
	}

	if o.Compression != "" && (o.Kind == "postgres" || o.Kind == "mssql" || o.Kind == "sqlite") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.compression",
			Message:  fmt.Sprintf("compression is ignored by the %s sink", o.Kind),
		})
	}
	return issues
}

func validateTransform(t Transform) []Issue {
	if strings.TrimSpace(t.Timezone) == "" {
		return nil // reported by the struct rules
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return []Issue{{
			Severity: SeverityError,
			Path:     "transform.timezone",
			Message:  fmt.Sprintf("unknown time zone %q", t.Timezone),
		}}
	}
	if t.Timezone == "Local" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "transform.timezone",
			Message:  "the machine-local zone is not allowed; name an IANA zone such as UTC",
		}}
	}
	return nil
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires a pushgateway url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires a dogstatsd address",
			})
		}
	case "none", "":
		if m.PushgatewayURL != "" || m.DatadogAddr != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.backend",
				Message:  "metrics endpoints are configured but the backend is none",
			})
		}
	}
	return issues
}
