// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package modbus

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVRequestParser reads frame requests from CSV, one request per row.
type CSVRequestParser struct {
	// CSV headers mapping
	headers []string
}

// NewCSVRequestParser creates a new CSV request parser
func NewCSVRequestParser() *CSVRequestParser {
	return &CSVRequestParser{
		headers: []string{
			"unitAddress",
			"functionCode",
			"startAddress",
			"payload",
			"comment",
		},
	}
}

// Headers returns the column names written by WriteCSV.
func (p *CSVRequestParser) Headers() []string {
	return append([]string(nil), p.headers...)
}

// ParseCSV parses CSV data into batch items. Columns are matched by header
// name; payload and comment are optional.
func (p *CSVRequestParser) ParseCSV(reader io.Reader) ([]FrameItem, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file")
	}

	headerMap := make(map[string]int)
	for i, h := range records[0] {
		headerMap[strings.TrimSpace(h)] = i
	}
	for _, field := range p.headers[:3] {
		if _, exists := headerMap[field]; !exists {
			return nil, fmt.Errorf("missing required field in CSV header: %s", field)
		}
	}

	items := make([]FrameItem, 0, len(records)-1)
	for i, record := range records[1:] {
		item, err := p.parseRecord(record, headerMap)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseCSVFromString is a convenience wrapper around ParseCSV.
func (p *CSVRequestParser) ParseCSVFromString(data string) ([]FrameItem, error) {
	return p.ParseCSV(strings.NewReader(data))
}

func (p *CSVRequestParser) parseRecord(record []string, headerMap map[string]int) (FrameItem, error) {
	var item FrameItem

	getField := func(fieldName string) string {
		if idx, exists := headerMap[fieldName]; exists && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	unit, err := strconv.Atoi(getField("unitAddress"))
	if err != nil {
		return item, &ValidationError{Field: FieldUnitAddress, Reason: fmt.Sprintf("%q is not a decimal address", getField("unitAddress"))}
	}
	fc, err := ParseFunctionCode(getField("functionCode"))
	if err != nil {
		return item, err
	}

	item.Request = FrameRequest{
		UnitAddress:  unit,
		Function:     fc,
		StartAddress: getField("startAddress"),
		Payload:      getField("payload"),
	}
	item.Comment = getField("comment")
	return item, nil
}

// WriteCSV writes items in the layout ParseCSV reads.
func (p *CSVRequestParser) WriteCSV(w io.Writer, items []FrameItem) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(p.headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, item := range items {
		record := []string{
			strconv.Itoa(item.Request.UnitAddress),
			item.Request.Function.String(),
			item.Request.StartAddress,
			item.Request.Payload,
			item.Comment,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
