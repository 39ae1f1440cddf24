// Package reader parses the three raw CSV schemas emitted by the tag
// vendor's archive portal into typed record sequences. Every column has a
// declared type; a cell that fails to parse is a schema violation that
// aborts the file.
package reader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"seal-telemetry/internal/models"
)

// RawTimeLayout is the fixed timestamp format used by all three raw
// schemas: HH:MM:SS DD-Mon-YYYY, e.g. "09:31:04 17-Apr-2008". All raw
// timestamps are UTC.
const RawTimeLayout = "15:04:05 02-Jan-2006"

// row is one data row bound to its file's normalized header index.
type row struct {
	file  string
	cols  map[string]int
	cells []string
}

func (r *row) raw(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r *row) reqStr(col string) (string, error) {
	v := r.raw(col)
	if v == "" {
		return "", &SchemaError{File: r.file, Column: col, Err: fmt.Errorf("required value is empty")}
	}
	return v, nil
}

func (r *row) reqTime(col string) (time.Time, error) {
	v, err := r.reqStr(col)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(RawTimeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, &SchemaError{File: r.file, Column: col, Value: v, Err: err}
	}
	return t, nil
}

func (r *row) optFloat(col string) (*float64, error) {
	v := r.raw(col)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &SchemaError{File: r.file, Column: col, Value: v, Err: err}
	}
	return &f, nil
}

func (r *row) optInt(col string) (*int, error) {
	v := r.raw(col)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &SchemaError{File: r.file, Column: col, Value: v, Err: err}
	}
	return &n, nil
}

// forEachRow opens a raw CSV file, validates that every required
// normalized column is present, and invokes fn once per data row.
func forEachRow(path string, required []string, fn func(*row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		// A header-only or empty file contributes no records.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range NormalizeHeaders(header) {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return &SchemaError{File: path, Column: col, Err: fmt.Errorf("required column missing")}
		}
	}

	for {
		cells, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := fn(&row{file: path, cols: cols, cells: cells}); err != nil {
			return err
		}
	}
}

// ReadLocations parses one <tag>-Locations.csv file.
func ReadLocations(path string) ([]models.RawLocationRecord, error) {
	var records []models.RawLocationRecord

	err := forEachRow(path, []string{"deploy_id", "date"}, func(r *row) error {
		rec := models.RawLocationRecord{
			Ptt:     r.raw("ptt"),
			Instr:   r.raw("instr"),
			Type:    r.raw("type"),
			Quality: r.raw("quality"),
			Comment: r.raw("comment"),
		}

		var err error
		if rec.DeployID, err = r.reqStr("deploy_id"); err != nil {
			return err
		}
		if rec.Date, err = r.reqTime("date"); err != nil {
			return err
		}
		if rec.Latitude, err = r.optFloat("latitude"); err != nil {
			return err
		}
		if rec.Longitude, err = r.optFloat("longitude"); err != nil {
			return err
		}
		if rec.ErrorRadius, err = r.optFloat("error_radius"); err != nil {
			return err
		}
		if rec.ErrorSemiMajorAxis, err = r.optFloat("error_semi_major_axis"); err != nil {
			return err
		}
		if rec.ErrorSemiMinorAxis, err = r.optFloat("error_semi_minor_axis"); err != nil {
			return err
		}
		if rec.ErrorEllipseOrientation, err = r.optFloat("error_ellipse_orientation"); err != nil {
			return err
		}
		if rec.Offset, err = r.optFloat("offset"); err != nil {
			return err
		}
		if rec.OffsetOrientation, err = r.optFloat("offset_orientation"); err != nil {
			return err
		}
		if rec.GPEMSD, err = r.optFloat("gpe_msd"); err != nil {
			return err
		}
		if rec.GPEU, err = r.optFloat("gpe_u"); err != nil {
			return err
		}
		if rec.Count, err = r.optInt("count"); err != nil {
			return err
		}

		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadHistos parses one <tag>-Histos.csv file. All histogram rows are
// returned; filtering to the "Percent" channel happens in the reshaper.
func ReadHistos(path string) ([]models.RawHistoRecord, error) {
	var records []models.RawHistoRecord

	err := forEachRow(path, []string{"deploy_id", "hist_type", "date"}, func(r *row) error {
		rec := models.RawHistoRecord{
			Ptt:             r.raw("ptt"),
			DepthSensor:     r.raw("depth_sensor"),
			Source:          r.raw("source"),
			Instr:           r.raw("instr"),
			LocationQuality: r.raw("location_quality"),
		}

		var err error
		if rec.DeployID, err = r.reqStr("deploy_id"); err != nil {
			return err
		}
		if rec.HistType, err = r.reqStr("hist_type"); err != nil {
			return err
		}
		if rec.Date, err = r.reqTime("date"); err != nil {
			return err
		}
		if rec.TimeOffset, err = r.optFloat("time_offset"); err != nil {
			return err
		}
		if rec.Count, err = r.optInt("count"); err != nil {
			return err
		}
		if rec.BadTherm, err = r.optInt("bad_therm"); err != nil {
			return err
		}
		if rec.Latitude, err = r.optFloat("latitude"); err != nil {
			return err
		}
		if rec.Longitude, err = r.optFloat("longitude"); err != nil {
			return err
		}
		if rec.NumBins, err = r.optInt("num_bins"); err != nil {
			return err
		}
		if rec.Sum, err = r.optFloat("sum"); err != nil {
			return err
		}
		for i := 0; i < models.NumHistoBins; i++ {
			if rec.Bins[i], err = r.optFloat(fmt.Sprintf("bin%d", i+1)); err != nil {
				return err
			}
		}

		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadBehavior parses one <tag>-Behavior.csv file. All event types are
// returned; filtering to Dive/Surface happens in the windower.
func ReadBehavior(path string) ([]models.RawBehaviorRecord, error) {
	var records []models.RawBehaviorRecord

	err := forEachRow(path, []string{"deploy_id", "start", "end", "what"}, func(r *row) error {
		rec := models.RawBehaviorRecord{
			Ptt:         r.raw("ptt"),
			DepthSensor: r.raw("depth_sensor"),
			Source:      r.raw("source"),
			Instr:       r.raw("instr"),
			Shape:       r.raw("shape"),
		}

		var err error
		if rec.DeployID, err = r.reqStr("deploy_id"); err != nil {
			return err
		}
		if rec.Start, err = r.reqTime("start"); err != nil {
			return err
		}
		if rec.End, err = r.reqTime("end"); err != nil {
			return err
		}
		if rec.What, err = r.reqStr("what"); err != nil {
			return err
		}
		if rec.Count, err = r.optInt("count"); err != nil {
			return err
		}
		if rec.Number, err = r.optInt("number"); err != nil {
			return err
		}
		if rec.DepthMin, err = r.optFloat("depth_min"); err != nil {
			return err
		}
		if rec.DepthMax, err = r.optFloat("depth_max"); err != nil {
			return err
		}
		if rec.DurationMin, err = r.optFloat("duration_min"); err != nil {
			return err
		}
		if rec.DurationMax, err = r.optFloat("duration_max"); err != nil {
			return err
		}
		if rec.Shallow, err = r.optInt("shallow"); err != nil {
			return err
		}
		if rec.Deep, err = r.optInt("deep"); err != nil {
			return err
		}

		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
