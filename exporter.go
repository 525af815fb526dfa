package ctrvekf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// RecordHeader is the header of the CSV export, one column per Record field.
var RecordHeader = []string{"x0", "x1", "x2", "x3", "x4", "z0", "z1", "z2", "z3", "dstate", "gps"}

// Record is the flat output of one filter step.
type Record struct {
	State       [StateSize]float64       // corrected state (x, y, ψ, v, ψ̇)
	Measurement [MeasurementSize]float64 // raw measurement (x, y, v, ψ̇)
	Regime      Regime
	GPS         bool
}

// Record returns the flat output of this estimate.
func (e EKFEstimate) Record() Record {
	r := Record{Regime: e.regime, GPS: e.sample.HasPositionFix}
	copy(r.State[:], e.state.Slice())
	r.Measurement = [MeasurementSize]float64{e.sample.PositionX, e.sample.PositionY, e.sample.Velocity, e.sample.YawRate}
	return r
}

// Strings returns the CSV fields of this record, ordered as RecordHeader.
func (r Record) Strings() []string {
	vals := make([]string, 0, len(RecordHeader))
	for _, v := range r.State {
		vals = append(vals, strconv.FormatFloat(v, 'g', -1, 64))
	}
	for _, v := range r.Measurement {
		vals = append(vals, strconv.FormatFloat(v, 'g', -1, 64))
	}
	gps := "0"
	if r.GPS {
		gps = "1"
	}
	return append(vals, strconv.Itoa(int(r.Regime)), gps)
}

// Exporter defines an export interface.
type Exporter interface {
	Write(*EKFEstimate) error
	Close() error
}

// CSVExporter writes one CSV row per estimate.
type CSVExporter struct {
	out    io.Writer
	w      *csv.Writer
	closer io.Closer
}

// NewCSVExporter returns an exporter writing to w, starting with the header.
// Closing the exporter flushes it but does not close w.
func NewCSVExporter(w io.Writer) (*CSVExporter, error) {
	e := &CSVExporter{out: w, w: csv.NewWriter(w)}
	if err := e.w.Write(RecordHeader); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	return e, nil
}

// CreateCSVExporter creates the file dir/filename and returns an exporter writing to it.
// The file starts with a comment line holding the creation date.
func CreateCSVExporter(dir, filename string) (*CSVExporter, error) {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return nil, errors.Wrap(err, "create export file")
	}
	if _, err := fmt.Fprintf(f, "# Creation date (UTC): %s\n", time.Now().UTC()); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write creation date")
	}
	e, err := NewCSVExporter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	e.closer = f
	return e, nil
}

// Write writes the record of the estimate.
func (e *CSVExporter) Write(est *EKFEstimate) error {
	return e.WriteRecord(est.Record())
}

// WriteRecord writes the provided record.
func (e *CSVExporter) WriteRecord(r Record) error {
	return e.w.Write(r.Strings())
}

// WriteRawLn writes a raw line, such as a comment, after the pending rows.
func (e *CSVExporter) WriteRawLn(s string) error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(e.out, s+"\n")
	return err
}

// Close flushes the pending rows. If the exporter created its file, the
// closing date is appended and the file closed.
func (e *CSVExporter) Close() error {
	if e.closer == nil {
		e.w.Flush()
		return e.w.Error()
	}
	if err := e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC())); err != nil {
		e.closer.Close()
		return err
	}
	return e.closer.Close()
}
