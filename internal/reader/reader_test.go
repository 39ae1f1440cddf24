package reader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seal-telemetry/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"DeployID", "deploy_id"},
		{"HistType", "hist_type"},
		{"DepthSensor", "depth_sensor"},
		{"Error Semi-major axis", "error_semi_major_axis"},
		{"Time Offset", "time_offset"},
		{"  Quality ", "quality"},
		{"Bin1", "bin1"},
		{"NumBins", "num_bins"},
		{"What", "what"},
		{"GPE MSD", "gpe_msd"},
		{"Error  Ellipse   orientation", "error_ellipse_orientation"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.raw), "raw header %q", tt.raw)
	}
}

func TestReadLocations(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "13A0456-Locations.csv",
		"Deploy ID,Ptt,Instr,Date,Type,Quality,Latitude,Longitude,Error radius\n"+
			"PV2008_0001,12345,Mk10,09:31:04 17-Apr-2008,Argos,1,58.1234,-152.3456,250\n"+
			"PV2008_0001,12345,Mk10,10:02:33 17-Apr-2008,Argos,A,58.2,,\n")

	records, err := ReadLocations(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "PV2008_0001", first.DeployID)
	assert.Equal(t, time.Date(2008, 4, 17, 9, 31, 4, 0, time.UTC), first.Date)
	assert.Equal(t, "1", first.Quality)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 58.1234, *first.Latitude, 1e-9)
	require.NotNil(t, first.ErrorRadius)
	assert.InDelta(t, 250, *first.ErrorRadius, 1e-9)

	// Empty numeric cells are missing values, not errors.
	second := records[1]
	assert.Nil(t, second.Longitude)
	assert.Nil(t, second.ErrorRadius)
}

func TestReadLocationsSchemaViolation(t *testing.T) {
	dir := t.TempDir()

	t.Run("unparseable value", func(t *testing.T) {
		path := writeFile(t, dir, "bad-Locations.csv",
			"Deploy ID,Date,Latitude\n"+
				"PV2008_0001,09:31:04 17-Apr-2008,not-a-number\n")

		_, err := ReadLocations(path)
		require.Error(t, err)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "latitude", schemaErr.Column)
		assert.Equal(t, "not-a-number", schemaErr.Value)
	})

	t.Run("missing required column", func(t *testing.T) {
		path := writeFile(t, dir, "nodate-Locations.csv",
			"Deploy ID,Latitude\nPV2008_0001,58.1\n")

		_, err := ReadLocations(path)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "date", schemaErr.Column)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		path := writeFile(t, dir, "badtime-Locations.csv",
			"Deploy ID,Date\nPV2008_0001,2008-04-17 09:31:04\n")

		_, err := ReadLocations(path)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "date", schemaErr.Column)
	})
}

func TestReadHistos(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "13A0456-Histos.csv",
		"DeployID,Ptt,HistType,Date,NumBins,Bin1,Bin2,Bin3\n"+
			"PV2008_0001,12345,Percent,00:00:00 17-Apr-2008,3,100,50,\n"+
			"PV2008_0001,12345,TAD,00:00:00 17-Apr-2008,3,1,2,3\n")

	records, err := ReadHistos(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	percent := records[0]
	assert.Equal(t, "Percent", percent.HistType)
	require.NotNil(t, percent.Bins[0])
	assert.Equal(t, 100.0, *percent.Bins[0])
	require.NotNil(t, percent.Bins[1])
	assert.Equal(t, 50.0, *percent.Bins[1])
	assert.Nil(t, percent.Bins[2])
	assert.Nil(t, percent.Bins[30])
}

func TestReadBehavior(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "13A0456-Behavior.csv",
		"DeployID,Ptt,Start,End,What,DepthMin,DepthMax\n"+
			"PV2008_0001,12345,09:00:00 17-Apr-2008,09:05:00 17-Apr-2008,Dive,10.5,80\n"+
			"PV2008_0001,12345,09:05:00 17-Apr-2008,09:06:00 17-Apr-2008,Surface,,\n"+
			"PV2008_0001,12345,09:06:00 17-Apr-2008,09:06:00 17-Apr-2008,Message,,\n")

	records, err := ReadBehavior(path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Dive", records[0].What)
	assert.Equal(t, 5*time.Minute, records[0].End.Sub(records[0].Start))
	require.NotNil(t, records[0].DepthMax)
	assert.Equal(t, 80.0, *records[0].DepthMax)
	assert.Equal(t, "Message", records[2].What)
}

func TestDefaultSourceClassifier(t *testing.T) {
	// FastGPS archives carry an extra marker segment, so their base
	// filenames run past the length threshold.
	assert.Equal(t, models.SourceFastGPS,
		DefaultSourceClassifier("/data/13A0456-1-FastGPS-Locations.csv"))
	assert.Equal(t, models.SourceArgos,
		DefaultSourceClassifier("/data/13A-Locations.csv"))
}

func TestInstrumentFromFilename(t *testing.T) {
	assert.Equal(t, "13A0456", InstrumentFromFilename("/data/13A0456-Locations.csv"))
	assert.Equal(t, "13A0456", InstrumentFromFilename("13A0456-1-FastGPS-Locations.csv"))
	assert.Equal(t, "plain", InstrumentFromFilename("plain.csv"))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-Locations.csv", "DeployID,Date\n")
	writeFile(t, dir, "a-Locations.csv", "DeployID,Date\n")
	writeFile(t, dir, "a-Histos.csv", "DeployID,HistType,Date\n")
	writeFile(t, dir, "a-Behavior.csv", "DeployID,Start,End,What\n")
	writeFile(t, dir, "notes.txt", "ignored")

	fs, err := Discover(dir)
	require.NoError(t, err)

	require.Len(t, fs.Locations, 2)
	// Sorted for deterministic fold order.
	assert.Equal(t, filepath.Join(dir, "a-Locations.csv"), fs.Locations[0])
	assert.Equal(t, filepath.Join(dir, "b-Locations.csv"), fs.Locations[1])
	assert.Len(t, fs.Histos, 1)
	assert.Len(t, fs.Behavior, 1)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	fs, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, fs.Locations)
	assert.Empty(t, fs.Histos)
	assert.Empty(t, fs.Behavior)
}
