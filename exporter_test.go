package ctrvekf

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsExporter(t *testing.T) {
	implements := func(Exporter) {}
	implements(new(CSVExporter))
}

func TestRecord(t *testing.T) {
	kf, _ := newTestEKF(t, State{V: 1})
	smpl := Sample{PositionX: 0.02, PositionY: -0.01, Velocity: 1.5, YawRate: 0, HasPositionFix: true}
	est, err := kf.Update(smpl)
	require.NoError(t, err)

	r := est.Record()
	assert.Equal(t, [MeasurementSize]float64{0.02, -0.01, 1.5, 0}, r.Measurement)
	assert.Equal(t, est.CTRVState().X, r.State[IdxX])
	assert.Equal(t, est.CTRVState().PsiDot, r.State[IdxPsiDot])
	assert.Equal(t, Straight, r.Regime)
	assert.True(t, r.GPS)

	fields := r.Strings()
	require.Len(t, fields, len(RecordHeader))
	assert.Equal(t, "0.02", fields[5])
	assert.Equal(t, "0", fields[9])
	assert.Equal(t, "1", fields[10])
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	ce, err := NewCSVExporter(&buf)
	require.NoError(t, err)

	kf, _ := newTestEKF(t, State{V: 5, PsiDot: 0.5})
	for k := 0; k < 3; k++ {
		est, err := kf.Update(Sample{Velocity: 5, YawRate: 0.5})
		require.NoError(t, err)
		require.NoError(t, ce.Write(est))
	}
	require.NoError(t, ce.Close())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "x0,x1,x2,x3,x4,z0,z1,z2,z3,dstate,gps", strings.Join(rows[0], ","))
	for _, row := range rows[1:] {
		assert.Equal(t, "1", row[9])
		assert.Equal(t, "0", row[10])
		assert.Equal(t, "5", row[3])
	}
}

func TestCSVExportFail(t *testing.T) {
	_, err := CreateCSVExporter("/noNoNoNo/", "temp.csv")
	if err == nil {
		t.Fatal("no issue when trying to create a file in a missing directory")
	}
}

func TestCSVExportFile(t *testing.T) {
	dir := t.TempDir()
	ce, err := CreateCSVExporter(dir, "EKFout.csv")
	if err != nil {
		t.Fatalf("could not create file %s", err)
	}
	if err = ce.WriteRecord(Record{State: [StateSize]float64{1, 2, 0.5, 3, 0.1}, GPS: true, Regime: Turning}); err != nil {
		t.Fatalf("could not write record to file %s", err)
	}
	if err = ce.Close(); err != nil {
		t.Fatalf("could not close file %s", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "EKFout.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "# Creation date (UTC): "))
	assert.Equal(t, strings.Join(RecordHeader, ","), lines[1])
	assert.Equal(t, "1,2,0.5,3,0.1,0,0,0,0,1,1", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "# Closing date (UTC): "))
}
