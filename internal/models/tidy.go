package models

import (
	"strconv"
	"time"
)

// JoinedMetadata carries the deployment attributes attached to every tidy
// row by the metadata join.
type JoinedMetadata struct {
	DeployStart *time.Time
	DeployEnd   *time.Time
	AgeClass    string
	Sex         string
}

// TidyLocation is one reconciled location fix. Within a deployment the
// (DeployID, Date) pair is unique after timestamp deduplication.
type TidyLocation struct {
	DeployID                string
	Date                    time.Time
	Instrument              string
	Source                  LocationSource
	Quality                 string
	Latitude                *float64
	Longitude               *float64
	ErrorRadius             *float64
	ErrorSemiMajorAxis      *float64
	ErrorSemiMinorAxis      *float64
	ErrorEllipseOrientation *float64
	Meta                    JoinedMetadata
}

// TidyPercent is one hour of haul-out (percent-dry) data. PercentDry is
// the mean of every raw histogram value mapped to that hour.
type TidyPercent struct {
	DeployID   string
	Hour       time.Time
	PercentDry float64
	Meta       JoinedMetadata
}

// TidyBehavior is one retained Dive or Surface event, annotated with its
// duration and its position in the deployment's 5-day summary windows.
// WindowActiveProportion may exceed 1.0; that is a data-quality signal
// left for downstream consumers, not an error.
type TidyBehavior struct {
	DeployID               string
	Start                  time.Time
	End                    time.Time
	What                   string
	DurationSeconds        float64
	WindowIndex            int
	WindowActiveProportion float64
	DepthMin               *float64
	DepthMax               *float64
	Meta                   JoinedMetadata
}

// LocationTable is the tidy locations dataset.
type LocationTable []TidyLocation

// PercentTable is the tidy percent-dry dataset.
type PercentTable []TidyPercent

// BehaviorTable is one of the two tidy behavior datasets (Dive or Surface).
type BehaviorTable []TidyBehavior

func (LocationTable) Header() []string {
	return []string{
		"deploy_id", "date", "instrument", "source", "quality",
		"latitude", "longitude",
		"error_radius", "error_semi_major_axis", "error_semi_minor_axis",
		"error_ellipse_orientation",
		"deploy_start", "deploy_end", "age_class", "sex",
	}
}

func (t LocationTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.DeployID,
			timeStr(r.Date),
			r.Instrument,
			string(r.Source),
			r.Quality,
			pftoa(r.Latitude),
			pftoa(r.Longitude),
			pftoa(r.ErrorRadius),
			pftoa(r.ErrorSemiMajorAxis),
			pftoa(r.ErrorSemiMinorAxis),
			pftoa(r.ErrorEllipseOrientation),
			ptimeStr(r.Meta.DeployStart),
			ptimeStr(r.Meta.DeployEnd),
			r.Meta.AgeClass,
			r.Meta.Sex,
		})
	}
	return rows
}

func (PercentTable) Header() []string {
	return []string{
		"deploy_id", "hour", "percent_dry",
		"deploy_start", "deploy_end", "age_class", "sex",
	}
}

func (t PercentTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.DeployID,
			timeStr(r.Hour),
			ftoa(r.PercentDry),
			ptimeStr(r.Meta.DeployStart),
			ptimeStr(r.Meta.DeployEnd),
			r.Meta.AgeClass,
			r.Meta.Sex,
		})
	}
	return rows
}

func (BehaviorTable) Header() []string {
	return []string{
		"deploy_id", "start", "end", "what",
		"duration_seconds", "window_index", "window_active_proportion",
		"depth_min", "depth_max",
		"deploy_start", "deploy_end", "age_class", "sex",
	}
}

func (t BehaviorTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.DeployID,
			timeStr(r.Start),
			timeStr(r.End),
			r.What,
			ftoa(r.DurationSeconds),
			strconv.Itoa(r.WindowIndex),
			ftoa(r.WindowActiveProportion),
			pftoa(r.DepthMin),
			pftoa(r.DepthMax),
			ptimeStr(r.Meta.DeployStart),
			ptimeStr(r.Meta.DeployEnd),
			r.Meta.AgeClass,
			r.Meta.Sex,
		})
	}
	return rows
}

// exportTimeLayout is the timestamp format used in delimited output.
const exportTimeLayout = "2006-01-02 15:04:05"

func timeStr(t time.Time) string {
	return t.UTC().Format(exportTimeLayout)
}

func ptimeStr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeStr(*t)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pftoa(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}
