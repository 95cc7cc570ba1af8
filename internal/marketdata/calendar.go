package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/equisim/internal/contracts"
)

// Calendar builds the trading-day calendar for a simulation from the
// benchmark ticker's available dates, clipped to [start, end]. The
// benchmark defines which days "exist" — the union of all instruments
// would leak thin listings into the calendar.
// ⭐ SSOT: 거래일 캘린더 산출은 여기서만
func Calendar(source contracts.BarSource, benchmark string, start, end time.Time) ([]time.Time, error) {
	series, ok := source.History(benchmark)
	if !ok {
		return nil, fmt.Errorf("no data for benchmark ticker %q", benchmark)
	}

	var days []time.Time
	for _, d := range series.Dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		days = append(days, d)
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("benchmark %q has no trading days between %s and %s",
			benchmark, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return days, nil
}

// NextTradingDay returns the first calendar day strictly after date,
// or ok=false when date is at or past the end of the calendar. This is
// the no-lookahead boundary: orders generated on day D can only fill
// here or later.
func NextTradingDay(calendar []time.Time, date time.Time) (time.Time, bool) {
	i := sort.Search(len(calendar), func(i int) bool {
		return calendar[i].After(date)
	})
	if i >= len(calendar) {
		return time.Time{}, false
	}
	return calendar[i], true
}
