package linkspeed

import (
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"time"
)

//DayType buckets service dates for aggregation
type DayType string

const (
	Weekday  DayType = "weekday"
	Saturday DayType = "saturday"
	//SundayHoliday covers sundays and observed holidays, which transit agencies commonly
	//schedule with the same service level
	SundayHoliday DayType = "sunday_holiday"
)

//dayTypeCalendar determines the DayType of a service date
type dayTypeCalendar struct {
	calendar *cal.BusinessCalendar
}

//makeDayTypeCalendar builds dayTypeCalendar
//TODO:: should be customizable by transit agency rather than being hardcoded as it is now.
func makeDayTypeCalendar() *dayTypeCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
		us.Juneteenth,
	)
	return &dayTypeCalendar{calendar: calendar}
}

//dayType returns the DayType serviceDate belongs to
func (d *dayTypeCalendar) dayType(serviceDate time.Time) DayType {
	_, observed, _ := d.calendar.IsHoliday(serviceDate)
	if observed {
		return SundayHoliday
	}
	switch serviceDate.Weekday() {
	case time.Saturday:
		return Saturday
	case time.Sunday:
		return SundayHoliday
	}
	return Weekday
}
