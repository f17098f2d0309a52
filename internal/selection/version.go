package selection

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mergerstool/mergers/internal/errors"
)

// semverShaped matches tags that look like they intend to be semantic
// versions (an optional v prefix followed by digit-dot-digit). Only these
// get strict semver validation; a sprint code like "2026-S14" passes
// through verbatim.
var semverShaped = regexp.MustCompile(`^v?\d+\.\d+`)

// ValidateVersionTag checks a --version argument. Tags that look like
// semantic versions must parse as one; anything else is accepted as-is,
// provided it is non-empty and filename/ref safe.
func ValidateVersionTag(version string) error {
	if strings.TrimSpace(version) == "" {
		return errors.NewValidationError("version is required").WithField("version")
	}
	if strings.ContainsAny(version, " ~^:?*[\\") {
		return errors.NewValidationError("version contains characters invalid in a git ref").
			WithField("version").WithValue(version)
	}
	if semverShaped.MatchString(version) {
		if _, err := semver.NewVersion(version); err != nil {
			return errors.NewValidationError("version looks like a semantic version but does not parse as one").
				WithField("version").WithValue(version)
		}
	}
	return nil
}
