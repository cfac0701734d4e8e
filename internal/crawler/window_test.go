package crawler

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hcm = time.FixedZone("ICT", 7*3600)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2024, 10, 14, 0, 0, 0, 0, hcm)
	cases := map[string]time.Time{
		"monday midnight": monday,
		"monday evening":  time.Date(2024, 10, 14, 22, 30, 0, 0, hcm),
		"thursday":        time.Date(2024, 10, 17, 9, 0, 0, 0, hcm),
		"sunday late":     time.Date(2024, 10, 20, 23, 59, 59, 0, hcm),
	}
	for name, now := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, WeekStart(now, hcm).Equal(monday))
		})
	}
}

func TestWeekStartUsesLocationCalendarDay(t *testing.T) {
	// 2024-10-13 20:00 UTC is already Monday 03:00 in UTC+7.
	now := time.Date(2024, 10, 13, 20, 0, 0, 0, time.UTC)
	assert.True(t, WeekStart(now, hcm).Equal(time.Date(2024, 10, 14, 0, 0, 0, 0, hcm)))
	assert.True(t, WeekStart(now, time.UTC).Equal(time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)))
}

func TestFromLastMondayBoundary(t *testing.T) {
	now := time.Date(2024, 10, 17, 9, 0, 0, 0, hcm)
	boundary := time.Date(2024, 10, 14, 0, 0, 0, 0, hcm)

	assert.True(t, FromLastMonday(boundary, now, hcm))
	assert.True(t, FromLastMonday(boundary.UTC(), now, hcm), "comparison is instant-based")
	assert.False(t, FromLastMonday(boundary.Add(-time.Millisecond), now, hcm))
}

func TestRankTopScenario(t *testing.T) {
	site := "https://vnexpress.net"
	now := time.Date(2024, 10, 17, 9, 0, 0, 0, time.UTC) // Thursday
	tuesday := time.Date(2024, 10, 15, 8, 0, 0, 0, time.UTC)

	raw := []Article{
		{Website: site, URL: "a", TotalLikes: 5, Date: tuesday},
		{Website: site, URL: "b", TotalLikes: 20, Date: tuesday},
		{Website: site, URL: "c", TotalLikes: 50, Date: now.AddDate(0, 0, -9)},
	}
	top := RankTop(raw, site, now, RecentWindow, TopLimit)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].URL)
	assert.Equal(t, "a", top[1].URL)
}

func TestRankTopLimitsSiteFilterAndStableTies(t *testing.T) {
	site := "https://tuoitre.vn"
	now := time.Date(2024, 10, 17, 9, 0, 0, 0, time.UTC)

	var raw []Article
	for i := 0; i < 15; i++ {
		raw = append(raw, Article{Website: site, URL: fmt.Sprintf("t-%02d", i), TotalLikes: i % 3, Date: now.Add(-time.Hour)})
	}
	raw = append(raw,
		Article{Website: "https://vnexpress.net", URL: "other", TotalLikes: 999, Date: now},
		Article{Website: site, URL: "edge", TotalLikes: 100, Date: now.Add(-RecentWindow)},
		Article{Website: site, URL: "stale", TotalLikes: 100, Date: now.Add(-RecentWindow - time.Second)},
	)

	top := RankTop(raw, site, now, RecentWindow, TopLimit)
	require.Len(t, top, TopLimit)
	assert.Equal(t, "edge", top[0].URL, "the window is inclusive")
	for i, a := range top {
		assert.Equal(t, site, a.Website)
		assert.NotEqual(t, "stale", a.URL)
		if i > 0 {
			assert.GreaterOrEqual(t, top[i-1].TotalLikes, a.TotalLikes)
		}
	}
	// likes=2 entries in raw order: t-02, t-05, t-08, t-11, t-14
	assert.Equal(t, []string{"t-02", "t-05", "t-08", "t-11", "t-14"}, urls(top[1:6]))
}

func TestRankTopOrdersExtremeLikeCounts(t *testing.T) {
	site := "https://vnexpress.net"
	now := time.Date(2024, 10, 17, 9, 0, 0, 0, time.UTC)
	raw := []Article{
		{Website: site, URL: "zero", TotalLikes: 0, Date: now},
		{Website: site, URL: "max", TotalLikes: math.MaxInt, Date: now},
		{Website: site, URL: "five", TotalLikes: 5, Date: now},
	}
	top := RankTop(raw, site, now, RecentWindow, TopLimit)
	assert.Equal(t, []string{"max", "five", "zero"}, urls(top))
}

func urls(articles []Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.URL
	}
	return out
}
