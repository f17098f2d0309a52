package selection

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/mergerstool/mergers/internal/errors"
)

// Clock supplies the current instant; injected so relative-window parsing
// is deterministic under test.
type Clock func() time.Time

// UTCNow is the production Clock.
func UTCNow() time.Time { return time.Now().UTC() }

// Cutoff is a resolved --since boundary. The zero value means "no window".
type Cutoff struct {
	Time time.Time
}

// IsZero reports whether no window was configured.
func (c Cutoff) IsZero() bool { return c.Time.IsZero() }

var relativeWindow = regexp.MustCompile(`^(\d+)(d|w|mo|y)$`)

// ParseSince resolves a --since argument: either an ISO-8601 date /
// RFC-3339 timestamp, or a relative window (Nd, Nw, Nmo, Ny) subtracted
// from the clock's current UTC instant at parse time.
func ParseSince(arg string, now Clock) (Cutoff, error) {
	if arg == "" {
		return Cutoff{}, nil
	}

	if m := relativeWindow.FindStringSubmatch(arg); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Cutoff{}, errors.NewValidationError("relative window count must be a positive integer").
				WithField("since").WithValue(arg)
		}
		ref := now()
		switch m[2] {
		case "d":
			return Cutoff{ref.AddDate(0, 0, -n)}, nil
		case "w":
			return Cutoff{ref.AddDate(0, 0, -7 * n)}, nil
		case "mo":
			return Cutoff{ref.AddDate(0, -n, 0)}, nil
		case "y":
			return Cutoff{ref.AddDate(-n, 0, 0)}, nil
		}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, arg); err == nil {
			return Cutoff{t.UTC()}, nil
		}
	}

	return Cutoff{}, errors.NewValidationError(
		fmt.Sprintf("%q is neither an ISO-8601 date nor a relative window (Nd, Nw, Nmo, Ny)", arg)).
		WithField("since").WithValue(arg)
}
