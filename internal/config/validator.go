package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError represents a single validation failure against a
// Settings field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every failure found by ValidateForRun.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// sinceWindowPattern matches a relative time window: a positive integer
// followed by d, w, mo, or y.
var sinceWindowPattern = regexp.MustCompile(`^(\d+)(d|w|mo|y)$`)

// isoDatePattern matches an ISO-8601 calendar date or full RFC-3339
// timestamp, loosely — exact parsing happens in internal/selection.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// ValidOutputFormats lists the accepted --output values.
func ValidOutputFormats() []string {
	return []string{string(OutputText), string(OutputJSON), string(OutputNDJSON)}
}

func isValidOutputFormat(f OutputFormat) bool {
	for _, v := range ValidOutputFormats() {
		if string(f) == v {
			return true
		}
	}
	return false
}

// ValidateForRun checks that Settings carries everything a non-interactive
// `run` needs: platform coordinates, a version, and well-formed optional
// fields. Interactive front-ends may defer some of these checks until the
// user is prompted, but the orchestrator itself always calls this before
// beginning a run.
func (s *Settings) ValidateForRun() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(s.Organization) == "" {
		errs = append(errs, ValidationError{"organization", s.Organization, "must not be empty"})
	}
	if strings.TrimSpace(s.Project) == "" {
		errs = append(errs, ValidationError{"project", s.Project, "must not be empty"})
	}
	if strings.TrimSpace(s.Repository) == "" {
		errs = append(errs, ValidationError{"repository", s.Repository, "must not be empty"})
	}
	if strings.TrimSpace(s.PAT) == "" {
		errs = append(errs, ValidationError{"pat", "<redacted>", "must not be empty"})
	}
	if strings.TrimSpace(s.Version) == "" {
		errs = append(errs, ValidationError{"version", s.Version, "required for a non-interactive run"})
	}
	if strings.TrimSpace(s.DevBranch) == "" {
		errs = append(errs, ValidationError{"dev_branch", s.DevBranch, "must not be empty"})
	}
	if strings.TrimSpace(s.TargetBranch) == "" {
		errs = append(errs, ValidationError{"target_branch", s.TargetBranch, "must not be empty"})
	}
	if s.DevBranch == s.TargetBranch && s.DevBranch != "" {
		errs = append(errs, ValidationError{"dev_branch", s.DevBranch, "must differ from target_branch"})
	}

	errs = append(errs, s.validateConcurrency()...)
	errs = append(errs, s.validateOutput()...)
	errs = append(errs, s.validateSince()...)

	return errs
}

func (s *Settings) validateConcurrency() ValidationErrors {
	var errs ValidationErrors
	if s.MaxConcurrentNetwork < 1 {
		errs = append(errs, ValidationError{"max_concurrent_network", s.MaxConcurrentNetwork, "must be at least 1"})
	}
	if s.MaxConcurrentProcessing < 1 {
		errs = append(errs, ValidationError{"max_concurrent_processing", s.MaxConcurrentProcessing, "must be at least 1"})
	}
	return errs
}

func (s *Settings) validateOutput() ValidationErrors {
	var errs ValidationErrors
	if s.Output == "" {
		return errs
	}
	if !isValidOutputFormat(s.Output) {
		errs = append(errs, ValidationError{
			Field: "output", Value: s.Output,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}
	return errs
}

func (s *Settings) validateSince() ValidationErrors {
	var errs ValidationErrors
	if s.Since == "" {
		return errs
	}
	if sinceWindowPattern.MatchString(s.Since) {
		m := sinceWindowPattern.FindStringSubmatch(s.Since)
		if n, err := strconv.Atoi(m[1]); err != nil || n <= 0 {
			errs = append(errs, ValidationError{"since", s.Since, "relative window count must be a positive integer"})
		}
		return errs
	}
	if isoDatePattern.MatchString(s.Since) {
		return errs
	}
	errs = append(errs, ValidationError{
		Field: "since", Value: s.Since,
		Message: "must be an ISO-8601 date or a relative window (Nd|Nw|Nmo|Ny)",
	})
	return errs
}

// ParseSelectByState splits the comma-separated --select-by-state flag
// into trimmed, non-empty work-item state names.
func (s *Settings) ParseSelectByState() []string {
	if strings.TrimSpace(s.SelectByState) == "" {
		return nil
	}
	parts := strings.Split(s.SelectByState, ",")
	states := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			states = append(states, trimmed)
		}
	}
	return states
}
