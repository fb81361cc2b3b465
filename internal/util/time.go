package util

import "time"

var (
	kstLocation     = loadZone("Asia/Seoul", "KST", 9*60*60)
	pacificLocation = loadZone("America/Los_Angeles", "PT", -8*60*60)
)

// loadZone falls back to a fixed offset when the tz database is missing.
func loadZone(name, abbr string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(abbr, offset)
	}
	return loc
}

// FormatKST formats t in Korea Standard Time.
func FormatKST(t time.Time, layout string) string {
	return t.In(kstLocation).Format(layout)
}

// NextPacificMidnight is the first midnight in US Pacific time after t.
func NextPacificMidnight(t time.Time) time.Time {
	local := t.In(pacificLocation)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, pacificLocation)
}
