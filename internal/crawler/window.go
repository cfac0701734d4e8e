package crawler

import (
	"cmp"
	"slices"
	"time"
)

// Ranking defaults for the per-site top snapshot.
const (
	TopLimit     = 10
	RecentWindow = 7 * 24 * time.Hour
)

// WeekStart returns midnight of the Monday of now's week in loc.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7 // days since Monday
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// FromLastMonday reports whether published falls on or after this week's Monday midnight.
func FromLastMonday(published, now time.Time, loc *time.Location) bool {
	return !published.Before(WeekStart(now, loc))
}

// RankTop keeps the site's articles published within window of now, sorted by
// likes descending (stable), truncated to limit.
func RankTop(articles []Article, siteID string, now time.Time, window time.Duration, limit int) []Article {
	cutoff := now.Add(-window)
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if a.Website != siteID || a.Date.Before(cutoff) {
			continue
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b Article) int {
		return cmp.Compare(b.TotalLikes, a.TotalLikes)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
