package gtfs

import (
	"time"

	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Calendar contains data from a record in a gtfs calendar.txt file
type Calendar struct {
	DataSetId int64  `db:"data_set_id"`
	ServiceId string `db:"service_id"`
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
}

// IsActiveOn returns true when the calendar's weekday flag is set for date and date falls
// inside the calendar's date range. Exceptions from calendar_dates.txt are applied separately
func (c *Calendar) IsActiveOn(date time.Time) bool {
	if c.StartDate != nil && date.Before(Get12AmTime(*c.StartDate)) {
		return false
	}
	if c.EndDate != nil && date.After(Get12AmTime(*c.EndDate)) {
		return false
	}
	switch date.Weekday() {
	case time.Monday:
		return c.Monday == 1
	case time.Tuesday:
		return c.Tuesday == 1
	case time.Wednesday:
		return c.Wednesday == 1
	case time.Thursday:
		return c.Thursday == 1
	case time.Friday:
		return c.Friday == 1
	case time.Saturday:
		return c.Saturday == 1
	}
	return c.Sunday == 1
}

// calendar_dates.txt exception types
const (
	ServiceAddedException   = 1
	ServiceRemovedException = 2
)

// CalendarDate contains data from a record in a gtfs calendar_dates.txt file
type CalendarDate struct {
	DataSetId     int64  `db:"data_set_id"`
	ServiceId     string `db:"service_id"`
	Date          time.Time
	ExceptionType int `db:"exception_type"`
}

func RecordCalendar(calendar *Calendar, dsTx *DataSetTransaction) error {
	calendar.DataSetId = dsTx.DS.Id
	statementString := "insert into calendar ( " +
		"data_set_id, " +
		"service_id, " +
		"monday, " +
		"tuesday, " +
		"wednesday, " +
		"thursday, " +
		"friday," +
		"saturday," +
		"sunday," +
		"start_date," +
		"end_date) " +
		"values (" +
		":data_set_id, " +
		":service_id, " +
		":monday, " +
		":tuesday, " +
		":wednesday, " +
		":thursday, " +
		":friday," +
		":saturday," +
		":sunday," +
		":start_date," +
		":end_date) "
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, calendar)
	return err

}

func RecordCalendarDate(calendarDate *CalendarDate, dsTx *DataSetTransaction) error {
	calendarDate.DataSetId = dsTx.DS.Id
	statementString := "insert into calendar_date ( " +
		"data_set_id, " +
		"service_id, " +
		"date, " +
		"exception_type) " +
		"values (" +
		":data_set_id, " +
		":service_id, " +
		":date, " +
		":exception_type)"
	statementString = dsTx.Tx.Rebind(statementString)
	_, err := dsTx.Tx.NamedExec(statementString, calendarDate)
	return err

}

// GetActiveServiceIds collects the serviceIds scheduled to run on serviceDate, applying
// calendar.txt weekday flags and date ranges then calendar_dates.txt exceptions
func GetActiveServiceIds(db *sqlx.DB, dataSetId int64, serviceDate time.Time) ([]string, error) {
	serviceDate = Get12AmTime(serviceDate)

	statementString := "select * from calendar where data_set_id = :data_set_id"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	active := make(map[string]bool)
	for rows.Next() {
		calendar := Calendar{}
		err = rows.StructScan(&calendar)
		if err != nil {
			return nil, err
		}
		if calendar.IsActiveOn(serviceDate) {
			active[calendar.ServiceId] = true
		}
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	statementString = "select * from calendar_date where data_set_id = :data_set_id and date = :date"
	exceptionRows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"data_set_id": dataSetId,
		"date":        serviceDate,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = exceptionRows.Close()
	}()

	for exceptionRows.Next() {
		calendarDate := CalendarDate{}
		err = exceptionRows.StructScan(&calendarDate)
		if err != nil {
			return nil, err
		}
		switch calendarDate.ExceptionType {
		case ServiceAddedException:
			active[calendarDate.ServiceId] = true
		case ServiceRemovedException:
			delete(active, calendarDate.ServiceId)
		}
	}
	err = exceptionRows.Err()
	if err != nil {
		return nil, err
	}

	serviceIds := make([]string, 0, len(active))
	for serviceId := range active {
		serviceIds = append(serviceIds, serviceId)
	}
	return serviceIds, nil
}
