package pipeline

import (
	"sort"
	"time"

	"seal-telemetry/internal/models"
)

// LocationFile is one parsed Locations file tagged with the instrument
// and source classification derived from its filename.
type LocationFile struct {
	Path       string
	Instrument string
	Source     models.LocationSource
	Records    []models.RawLocationRecord
}

// ReconcileResult is the output of the location reconciliation step,
// before the metadata join.
type ReconcileResult struct {
	Table          models.LocationTable
	DroppedFiles   []string
	TimestampBumps int
}

// Reconcile merges the location files of one deployment batch into a
// single table with unique (deploy_id, timestamp) keys.
//
// FastGPS data supersedes Argos data per instrument, not per record: any
// Argos file whose instrument also appears among the FastGPS files is
// dropped wholesale. The survivors are concatenated in input order,
// sorted by (deploy_id, timestamp), and colliding timestamps are bumped
// forward one second at a time until unique. The bump never reorders
// records that were already unique, so running the step on its own
// output is a no-op.
func Reconcile(files []LocationFile) ReconcileResult {
	gpsInstruments := make(map[string]bool)
	for _, f := range files {
		if f.Source == models.SourceFastGPS {
			gpsInstruments[f.Instrument] = true
		}
	}

	var res ReconcileResult
	var rows models.LocationTable
	for _, f := range files {
		if f.Source == models.SourceArgos && gpsInstruments[f.Instrument] {
			res.DroppedFiles = append(res.DroppedFiles, f.Path)
			continue
		}
		for _, rec := range f.Records {
			rows = append(rows, models.TidyLocation{
				DeployID:                rec.DeployID,
				Date:                    rec.Date,
				Instrument:              f.Instrument,
				Source:                  f.Source,
				Quality:                 rec.Quality,
				Latitude:                rec.Latitude,
				Longitude:               rec.Longitude,
				ErrorRadius:             rec.ErrorRadius,
				ErrorSemiMajorAxis:      rec.ErrorSemiMajorAxis,
				ErrorSemiMinorAxis:      rec.ErrorSemiMinorAxis,
				ErrorEllipseOrientation: rec.ErrorEllipseOrientation,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DeployID != rows[j].DeployID {
			return rows[i].DeployID < rows[j].DeployID
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	res.TimestampBumps = dedupTimestamps(rows)
	res.Table = rows
	return res
}

// dedupTimestamps applies the forward-only one-second bump to consecutive
// records of the same deployment that share a timestamp. Returns the
// number of bumps applied.
func dedupTimestamps(rows models.LocationTable) int {
	bumps := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].DeployID != rows[i-1].DeployID {
			continue
		}
		if !rows[i].Date.After(rows[i-1].Date) {
			rows[i].Date = rows[i-1].Date.Add(time.Second)
			bumps++
		}
	}
	return bumps
}
