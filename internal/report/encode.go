package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// WriteJSON renders r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

// WriteYAML renders r as YAML.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "report: close yaml encoder")
	}
	return nil
}

var xlsxHeader = []string{"Name", "Km", "Slots", "Verified", "Next RDV", "Address", "URL", "Error"}

// WriteXLSX renders the rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, r *Report) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("chronodoses")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, row := range r.Rows {
		x := sheet.AddRow()
		x.AddCell().SetString(row.Name)
		x.AddCell().SetFloatWithFormat(row.DistanceKM, "0.00")
		x.AddCell().SetInt(row.Slots)
		x.AddCell().SetString(strconv.FormatBool(row.Verified))
		x.AddCell().SetString(formatNext(row.NextAppointment))
		x.AddCell().SetString(row.Address)
		x.AddCell().SetString(row.URL)
		x.AddCell().SetString(row.Error)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}
