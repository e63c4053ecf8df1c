package settings

import "time"

const (
	KeyGraceTimeHours     = "unlimited_week_grace_time_hours"
	KeyWeeklyBookingLimit = "unlimited_week_weekly_limit"

	DefaultGraceTimeHours     = 24
	DefaultWeeklyBookingLimit = 25
	DefaultTTL                = 5 * time.Minute
)

type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Values is an immutable snapshot of the tunables.
type Values struct {
	GraceTimeHours     int       `json:"grace_time_hours"`
	WeeklyBookingLimit int       `json:"weekly_booking_limit"`
	LoadedAt           time.Time `json:"loaded_at"`
}

type UpdateSettingRequest struct {
	Value int `json:"value" binding:"required,gte=1"`
}

func knownKey(key string) bool {
	return key == KeyGraceTimeHours || key == KeyWeeklyBookingLimit
}
