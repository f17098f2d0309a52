package selection

import (
	"reflect"
	"testing"
	"time"

	"github.com/mergerstool/mergers/internal/platform"
)

func prWith(id int, commit string, states ...string) platform.PullRequestWithWorkItems {
	items := make([]platform.WorkItem, len(states))
	for i, s := range states {
		items[i] = platform.WorkItem{ID: id*10 + i, State: s}
	}
	return platform.PullRequestWithWorkItems{
		PullRequest: platform.PullRequest{ID: id, LastMergeCommit: commit},
		WorkItems:   items,
	}
}

func TestSelectByWorkItemStates(t *testing.T) {
	prs := []platform.PullRequestWithWorkItems{
		prWith(101, "aaaa", "Done"),
		prWith(102, "bbbb", "Active"),
		prWith(103, "cccc", "Active", "Done"),
		prWith(104, "dddd"),
	}

	SelectByWorkItemStates(prs, []string{"Done"})

	want := []bool{true, false, true, false}
	for i, pr := range prs {
		if pr.Selected != want[i] {
			t.Errorf("pr %d selected = %v, want %v", pr.PullRequest.ID, pr.Selected, want[i])
		}
	}
}

func TestSelectByWorkItemStatesEmptySelectsAll(t *testing.T) {
	prs := []platform.PullRequestWithWorkItems{prWith(1, "aa"), prWith(2, "bb", "Active")}
	SelectByWorkItemStates(prs, nil)
	for _, pr := range prs {
		if !pr.Selected {
			t.Errorf("pr %d not selected", pr.PullRequest.ID)
		}
	}
}

func TestSelectExactStringMatch(t *testing.T) {
	prs := []platform.PullRequestWithWorkItems{prWith(1, "aa", "done")}
	SelectByWorkItemStates(prs, []string{"Done"})
	if prs[0].Selected {
		t.Error("state match must be exact, not case-insensitive")
	}
}

func TestFilterSince(t *testing.T) {
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	prs := []platform.PullRequestWithWorkItems{
		{PullRequest: platform.PullRequest{ID: 1, ClosedDate: &old}, Selected: true},
		{PullRequest: platform.PullRequest{ID: 2, ClosedDate: &recent}, Selected: true},
		{PullRequest: platform.PullRequest{ID: 3}, Selected: true}, // no closed date
	}

	FilterSince(prs, Cutoff{time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)})

	if prs[0].Selected {
		t.Error("pr 1 closed before cutoff should be de-selected")
	}
	if !prs[1].Selected {
		t.Error("pr 2 closed after cutoff should stay selected")
	}
	if !prs[2].Selected {
		t.Error("pr 3 with no closed date should stay selected")
	}
}

func TestDeselectWithoutMergeCommit(t *testing.T) {
	prs := []platform.PullRequestWithWorkItems{
		prWith(1, "aaaa"), prWith(2, ""), prWith(3, "cccc"),
	}
	for i := range prs {
		prs[i].Selected = true
	}

	dropped := DeselectWithoutMergeCommit(prs)
	if !reflect.DeepEqual(dropped, []int{2}) {
		t.Errorf("dropped = %v", dropped)
	}
	if prs[1].Selected {
		t.Error("pr 2 without merge commit should be de-selected")
	}
	if got := Selected(prs); len(got) != 2 {
		t.Errorf("Selected() len = %d", len(got))
	}
}

func TestParseSinceRelativeWindows(t *testing.T) {
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	tests := []struct {
		arg  string
		want time.Time
	}{
		{"3d", fixed.AddDate(0, 0, -3)},
		{"2w", fixed.AddDate(0, 0, -14)},
		{"1mo", fixed.AddDate(0, -1, 0)},
		{"1y", fixed.AddDate(-1, 0, 0)},
	}
	for _, tt := range tests {
		got, err := ParseSince(tt.arg, clock)
		if err != nil {
			t.Errorf("ParseSince(%q): %v", tt.arg, err)
			continue
		}
		if !got.Time.Equal(tt.want) {
			t.Errorf("ParseSince(%q) = %v, want %v", tt.arg, got.Time, tt.want)
		}
	}
}

func TestParseSinceAbsoluteDates(t *testing.T) {
	got, err := ParseSince("2026-03-15", UTCNow)
	if err != nil {
		t.Fatalf("ParseSince: %v", err)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Time.Equal(want) {
		t.Errorf("got %v, want %v", got.Time, want)
	}

	got, err = ParseSince("2026-03-15T10:30:00Z", UTCNow)
	if err != nil {
		t.Fatalf("ParseSince rfc3339: %v", err)
	}
	if got.Time.Hour() != 10 {
		t.Errorf("hour = %d", got.Time.Hour())
	}
}

func TestParseSinceRejectsGarbage(t *testing.T) {
	for _, arg := range []string{"yesterday", "3x", "-1d", "d"} {
		if _, err := ParseSince(arg, UTCNow); err == nil {
			t.Errorf("ParseSince(%q) should fail", arg)
		}
	}
}

func TestParseSinceEmptyMeansNoWindow(t *testing.T) {
	got, err := ParseSince("", UTCNow)
	if err != nil || !got.IsZero() {
		t.Fatalf("ParseSince(\"\") = %v, %v", got, err)
	}
}

func TestValidateVersionTag(t *testing.T) {
	valid := []string{"v1.2.3", "1.2.3", "2026-S14", "hotfix-rollup", "v2.0.0-rc.1"}
	for _, v := range valid {
		if err := ValidateVersionTag(v); err != nil {
			t.Errorf("ValidateVersionTag(%q): %v", v, err)
		}
	}

	invalid := []string{"", "  ", "v1.2.bad", "has space", "tilde~1"}
	for _, v := range invalid {
		if err := ValidateVersionTag(v); err == nil {
			t.Errorf("ValidateVersionTag(%q) should fail", v)
		}
	}
}
