package gtfsstatic

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// csvParser reads rows from one gtfs csv file. column extraction errors are collected with
// the line number they happened on and surfaced through getError
type csvParser struct {
	filename   string
	line       int
	reader     *csv.Reader
	headers    []string
	currentRow []string
	errors     []error
}

func makeCsvParser(r io.Reader, filename string) (*csvParser, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header of %s: %w", filename, err)
	}
	removeBOMIfPresent(headers)
	return &csvParser{
		filename: filename,
		line:     1,
		reader:   reader,
		headers:  headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 || len(headers[0]) < 1 {
		return
	}
	runes := []rune(headers[0])
	if runes[0] == '\uFEFF' {
		headers[0] = string(runes[1:])
	}
}

// nextRow moves the reader one line forward. returns io.EOF at the end of the file
func (p *csvParser) nextRow() error {
	var err error
	p.currentRow, err = p.reader.Read()
	p.line++
	return err
}

func (p *csvParser) getError() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", p.filename, p.line, p.errors)
	}
	return nil
}

// findValue retrieves the current row's value under the named header.
// returns nil without error when the column is absent or empty and optional is true
func (p *csvParser) findValue(name string, optional bool) *string {
	index := -1
	for i, header := range p.headers {
		if header == name {
			index = i
			break
		}
	}
	if index < 0 || index >= len(p.currentRow) {
		if !optional {
			p.errors = append(p.errors, fmt.Errorf("missing required column %v", name))
		}
		return nil
	}
	value := p.currentRow[index]
	if len(value) == 0 {
		if !optional {
			p.errors = append(p.errors, fmt.Errorf("missing required value in column %v", name))
		}
		return nil
	}
	return &value
}

func (p *csvParser) getString(name string, optional bool) string {
	value := p.findValue(name, optional)
	if value == nil {
		return ""
	}
	return *value
}

func (p *csvParser) getStringPointer(name string, optional bool) *string {
	return p.findValue(name, optional)
}

func (p *csvParser) getInt(name string, optional bool) int {
	value := p.findValue(name, optional)
	if value == nil {
		return 0
	}
	result, err := strconv.Atoi(*value)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return 0
	}
	return result
}

func (p *csvParser) getFloat64(name string, optional bool) float64 {
	result := p.getFloat64Pointer(name, optional)
	if result == nil {
		return 0
	}
	return *result
}

func (p *csvParser) getFloat64Pointer(name string, optional bool) *float64 {
	value := p.findValue(name, optional)
	if value == nil {
		return nil
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return nil
	}
	return &result
}

// getGTFSDatePointer retrieves a date in gtfs YYYYMMDD format
func (p *csvParser) getGTFSDatePointer(name string, optional bool) *time.Time {
	value := p.findValue(name, optional)
	if value == nil {
		return nil
	}
	result, err := time.ParseInLocation("20060102", *value, time.Local)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return nil
	}
	return &result
}

func (p *csvParser) getGTFSDate(name string, optional bool) time.Time {
	result := p.getGTFSDatePointer(name, optional)
	if result == nil {
		return time.Time{}
	}
	return *result
}

// getGTFSTime retrieves seconds past noon minus twelve hours of the service day, from the
// gtfs HH:MM:SS format. hours past 24 indicate times on the following day
func (p *csvParser) getGTFSTime(name string, optional bool) int {
	value := p.findValue(name, optional)
	if value == nil {
		return 0
	}
	result, err := secondsFromGTFSTime(*value)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return 0
	}
	return result
}

func columnError(name string, err error) error {
	return fmt.Errorf("unable to parse column %s, error: %v", name, err)
}

func secondsFromGTFSTime(gtfsTime string) (int, error) {
	parts := strings.Split(strings.TrimSpace(gtfsTime), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS time format: %s", gtfsTime)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	return hours*60*60 + minutes*60 + seconds, nil
}
