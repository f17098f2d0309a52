package errors

import (
	"fmt"
	"testing"
)

func TestStateError(t *testing.T) {
	cause := New("unexpected EOF")
	err := NewStateError("failed to load state", cause, ExitNoStateFile).WithStateFile("/tmp/merge-abc.json")

	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
	if !Is(err, cause) {
		t.Error("expected wrapped cause to satisfy errors.Is")
	}
	if err.ExitCode() != ExitNoStateFile {
		t.Errorf("ExitCode() = %d, want %d", err.ExitCode(), ExitNoStateFile)
	}
	if !err.IsUserFacing() {
		t.Error("expected StateError to be user-facing")
	}

	var target *StateError
	if !As(err, &target) {
		t.Error("expected errors.As to match *StateError")
	}
}

func TestLockError(t *testing.T) {
	err := NewLockError("lock held", ErrLockHeld).WithHolderPID(4242)

	if err.HolderPID != 4242 {
		t.Errorf("HolderPID = %d, want 4242", err.HolderPID)
	}
	if CodeFor(err) != ExitLocked {
		t.Errorf("CodeFor() = %d, want %d", CodeFor(err), ExitLocked)
	}
	if !Is(err, ErrLockHeld) {
		t.Error("expected Is(err, ErrLockHeld) to be true")
	}
}

func TestGitError(t *testing.T) {
	cause := New("exit status 1")
	err := NewGitError("cherry-pick failed", cause).
		WithRepository("/repo/path").
		WithBranch("mergers/pr-123").
		WithGitOutput("CONFLICT (content): Merge conflict in foo.go\n")

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	if !Is(err, ErrGitFailure) {
		t.Error("expected GitError to satisfy Is(ErrGitFailure)")
	}
	if !IsRetryable(err) {
		// default retryable is false for GitError
	}
	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
}

func TestPlatformErrorRetryability(t *testing.T) {
	serverErr := NewPlatformError("request failed", New("timeout")).WithStatusCode(503)
	if !IsRetryable(serverErr) {
		t.Error("expected 503 to be retryable")
	}

	clientErr := NewPlatformError("request failed", New("bad request")).WithStatusCode(400)
	if IsRetryable(clientErr) {
		t.Error("expected 400 to not be retryable")
	}

	transportErr := NewPlatformError("request failed", New("dial tcp: connection refused")).WithStatusCode(0)
	if !IsRetryable(transportErr) {
		t.Error("expected transport failure (status 0) to be retryable")
	}

	if !Is(serverErr, ErrPlatformFailure) {
		t.Error("expected PlatformError to satisfy Is(ErrPlatformFailure)")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		NewValidationError("organization is required").WithField("organization"),
		NewValidationError("project is required").WithField("project"),
	}
	msg := errs.Error()
	if msg == "" {
		t.Fatal("expected non-empty aggregate message")
	}

	single := ValidationErrors{NewValidationError("organization is required").WithField("organization")}
	if single.Error() != single[0].Error() {
		t.Error("expected single-element ValidationErrors to delegate to the element's Error()")
	}
}

func TestCodeForUnwrappedSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want ExitCode
	}{
		{ErrLockHeld, ExitLocked},
		{ErrStateMissing, ExitNoStateFile},
		{ErrPhaseInvalid, ExitInvalidPhase},
		{ErrNoPRsMatched, ExitNoPRsMatched},
		{New("some unrelated error"), ExitGeneralError},
		{nil, ExitSuccess},
	}
	for _, tc := range cases {
		if got := CodeFor(tc.err); got != tc.want {
			t.Errorf("CodeFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestCodeForWrappedMergersError(t *testing.T) {
	base := NewStateError("corrupted", ErrStateCorrupted, ExitNoStateFile)
	wrapped := fmt.Errorf("loading state: %w", base)
	if got := CodeFor(wrapped); got != ExitNoStateFile {
		t.Errorf("CodeFor(wrapped) = %d, want %d", got, ExitNoStateFile)
	}
}

func TestWrapAndWrapf(t *testing.T) {
	cause := New("boom")
	wrapped := Wrap(cause, "doing thing")
	if !Is(wrapped, cause) {
		t.Error("expected Wrap to preserve errors.Is chain")
	}

	wrappedf := Wrapf(cause, "doing %s", "thing")
	if !Is(wrappedf, cause) {
		t.Error("expected Wrapf to preserve errors.Is chain")
	}

	if Wrap(nil, "noop") != nil {
		t.Error("expected Wrap(nil, ...) to return nil")
	}
	if Wrapf(nil, "noop %d", 1) != nil {
		t.Error("expected Wrapf(nil, ...) to return nil")
	}
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{
		SeverityDebug:    "debug",
		SeverityInfo:     "info",
		SeverityWarning:  "warning",
		SeverityError:    "error",
		SeverityCritical: "critical",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}
