package tm30

import "time"

// Bangkok is the filing time zone. The immigration portal works in Thailand
// local dates regardless of where the booking instant was recorded.
var Bangkok = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}()

// FilingDate renders an instant as the zero-padded DD/MM/YYYY calendar day in
// Thailand local time, the format the automation executor expects on the wire.
func FilingDate(t time.Time) string {
	return t.In(Bangkok).Format("02/01/2006")
}

// DayWindow returns the half-open [00:00, +24h) interval of now's calendar day
// in Thailand local time, for selecting same-day check-ins.
func DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(Bangkok)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Bangkok)
	return start, start.Add(24 * time.Hour)
}
