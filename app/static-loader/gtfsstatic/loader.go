// Package gtfsstatic reads a gtfs static schedule zip file and records it to a database
package gtfsstatic

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
	"github.com/SACOG/linkspeeds/foundation/httpclient"
	"github.com/jmoiron/sqlx"
)

// LoadSchedule reads the gtfs zip file at source, a url or local file path, and records its
// contents under a new DataSet inside a single transaction. the DataSet is only marked
// saved once every file loads cleanly
func LoadSchedule(log *log.Logger, db *sqlx.DB, source string) (*gtfs.DataSet, error) {
	start := time.Now()
	zipBytes, err := readSource(source)
	if err != nil {
		return nil, err
	}
	log.Printf("Read %d bytes from %s in %d seconds", len(zipBytes), source,
		time.Now().Unix()-start.Unix())

	zipReader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("unable to open gtfs zip file from %s: %w", source, err)
	}

	files, err := collectScheduleFiles(zipReader)
	if err != nil {
		return nil, err
	}

	ds := gtfs.DataSet{
		URL:          source,
		DownloadedAt: time.Now(),
	}
	err = transact(log, db, func(tx *sqlx.Tx) error {
		err := gtfs.SaveDataSet(tx, &ds)
		if err != nil {
			return err
		}
		dsTx := gtfs.DataSetTransaction{
			DS: ds,
			Tx: tx,
		}
		err = loadScheduleFiles(log, &dsTx, files)
		if err != nil {
			return err
		}
		now := time.Now()
		ds.SavedAt = &now
		return gtfs.SaveDataSet(tx, &ds)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %v", &ds)
	return &ds, nil
}

func readSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return httpclient.GetBytes(source)
	}
	return os.ReadFile(source)
}

// scheduleFiles holds the gtfs files the loader knows how to record
type scheduleFiles struct {
	calendarFile     *zip.File
	calendarDateFile *zip.File
	stopFile         *zip.File
	shapeFile        *zip.File
	stopTimeFile     *zip.File
	tripFile         *zip.File
}

// collectScheduleFiles locates the gtfs files in zipReader.
// calendar_dates.txt is the only file allowed to be missing
func collectScheduleFiles(zipReader *zip.Reader) (*scheduleFiles, error) {
	files := scheduleFiles{}
	for _, f := range zipReader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch f.Name {
		case "calendar.txt":
			files.calendarFile = f
		case "calendar_dates.txt":
			files.calendarDateFile = f
		case "stops.txt":
			files.stopFile = f
		case "shapes.txt":
			files.shapeFile = f
		case "stop_times.txt":
			files.stopTimeFile = f
		case "trips.txt":
			files.tripFile = f
		}
	}

	missing := make([]string, 0)
	for _, required := range []struct {
		name string
		file *zip.File
	}{
		{"calendar.txt", files.calendarFile},
		{"stops.txt", files.stopFile},
		{"shapes.txt", files.shapeFile},
		{"stop_times.txt", files.stopTimeFile},
		{"trips.txt", files.tripFile},
	} {
		if required.file == nil {
			missing = append(missing, required.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("gtfs zip file is missing the following file(s) %s",
			strings.Join(missing, ","))
	}
	return &files, nil
}

// loadScheduleFiles loads the gtfs files in dependency order: stops before stop_times so
// positions can be joined, stop_times and shapes before trips so schedule spans and
// distances can be filled in
func loadScheduleFiles(log *log.Logger, dsTx *gtfs.DataSetTransaction, files *scheduleFiles) error {
	err := loadScheduleFile(log, dsTx, &calendarRowReader{}, files.calendarFile)
	if err != nil {
		return err
	}
	if files.calendarDateFile != nil {
		err = loadScheduleFile(log, dsTx, &calendarDateRowReader{}, files.calendarDateFile)
		if err != nil {
			return err
		}
	}
	stopRR := newStopRowReader()
	err = loadScheduleFile(log, dsTx, stopRR, files.stopFile)
	if err != nil {
		return err
	}
	shapeRR := newShapeRowReader()
	err = loadScheduleFile(log, dsTx, shapeRR, files.shapeFile)
	if err != nil {
		return err
	}
	stopTimeRR := newStopTimeRowReader(stopRR)
	err = loadScheduleFile(log, dsTx, stopTimeRR, files.stopTimeFile)
	if err != nil {
		return err
	}
	return loadScheduleFile(log, dsTx, newTripRowReader(stopTimeRR, shapeRR), files.tripFile)
}

func loadScheduleFile(log *log.Logger, dsTx *gtfs.DataSetTransaction, rowReader gtfsRowReader, f *zip.File) error {
	start := time.Now()
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		err := rc.Close()
		if err != nil {
			log.Printf("unable to close %s in gtfs zip file, error: %v", f.Name, err)
		}
	}()
	parser, err := makeCsvParser(rc, f.Name)
	if err != nil {
		return err
	}
	log.Printf("Loading %s", parser.filename)
	err = loadRows(dsTx, parser, rowReader)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d rows in file %s in %d seconds", parser.line, parser.filename,
		time.Now().Unix()-start.Unix())
	return nil
}

// loadRows feeds every row in parser into rowReader, halting on the first error
func loadRows(dsTx *gtfs.DataSetTransaction, parser *csvParser, rowReader gtfsRowReader) error {
	for {
		err := parser.nextRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		err = rowReader.addRow(parser, dsTx)
		if err != nil {
			return err
		}
	}
	return rowReader.flush(dsTx)
}

// transact runs txFunc inside a transaction on db, committing on success and rolling back
// on error
func transact(log *log.Logger, db *sqlx.DB, txFunc func(*sqlx.Tx) error) (err error) {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil {
				log.Printf("Received error while attempting to rollback transaction. error:%v", rollbackErr)
			}
			return
		}
		err = tx.Commit()
	}()
	err = txFunc(tx)
	return err
}
