package database

import "time"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format("2006-01-02")
}

// Now returns the current timestamp in the format used for snapshot dates.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// DayOf truncates a snapshot timestamp to its calendar day (YYYY-MM-DD).
// Fact rows carry full timestamps; the analytical view joins on days.
func DayOf(ts string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
