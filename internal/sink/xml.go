package sink

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

// XMLSink writes each table to <Dir>/<tableName>.xml:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<table name="eastern_claims" sheet="Claims" rows="2">
//	  <row n="1">
//	    <cell column="Claim ID">C-1</cell>
//	    ...
//	  </row>
//	</table>
//
// The file is written beside the target and renamed over it, so an existing
// table is replaced whole or not at all.
type XMLSink struct {
	Dir    string
	Indent string
}

// NewXMLSink returns a sink writing into dir with two-space indentation.
func NewXMLSink(dir string) *XMLSink {
	return &XMLSink{Dir: dir, Indent: "  "}
}

type xmlTable struct {
	XMLName xml.Name `xml:"table"`
	Name    string   `xml:"name,attr"`
	Sheet   string   `xml:"sheet,attr,omitempty"`
	Rows    int      `xml:"rows,attr"`
	Row     []xmlRow `xml:"row"`
}

type xmlRow struct {
	N     int       `xml:"n,attr"`
	Cells []xmlCell `xml:"cell"`
}

type xmlCell struct {
	Column string `xml:"column,attr"`
	Value  string `xml:",chardata"`
}

// Path returns the file a table is written to.
func (s *XMLSink) Path(tableName string) string {
	return filepath.Join(s.Dir, tableName+".xml")
}

func (s *XMLSink) Load(ctx context.Context, tableName string, table *types.Table) error {
	if err := checkTable(tableName, table); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+tableName+"-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.encode(tmp, tableName, table); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tableName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path(tableName)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.Path(tableName), err)
	}
	return nil
}

func (s *XMLSink) encode(f *os.File, tableName string, table *types.Table) error {
	doc := xmlTable{
		Name:  tableName,
		Sheet: table.Sheet,
		Rows:  len(table.Rows),
		Row:   make([]xmlRow, len(table.Rows)),
	}
	for i, row := range table.Rows {
		cells := make([]xmlCell, len(row))
		for j, value := range row {
			cells[j] = xmlCell{Column: table.Columns[j], Value: value}
		}
		doc.Row[i] = xmlRow{N: i + 1, Cells: cells}
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", s.Indent)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}

func (s *XMLSink) Close() error {
	return nil
}
