package pipeline

import (
	"sort"
	"time"

	"seal-telemetry/internal/models"
)

// JoinReport describes what the metadata join could not resolve. Gaps and
// missing bounds are non-fatal; they are reported so the reference
// database can be repaired, and processing continues.
type JoinReport struct {
	// MetadataGaps lists deployment ids present in the derived table but
	// entirely absent from the metadata store. Their rows are excluded
	// from the joined output.
	MetadataGaps []string
	// MissingBounds lists joined deployment ids whose metadata lacks a
	// deploy start or end date. Their rows pass through unfiltered.
	MissingBounds []string
	// UnmatchedMetadata lists deployment ids present in the metadata
	// store but contributing no rows to this table.
	UnmatchedMetadata []string
	// RowsFiltered counts rows dropped because their timestamp fell
	// outside the deployment's [start, end] interval.
	RowsFiltered int
}

// Joiner attaches deployment metadata to derived tables and filters rows
// to each deployment's active date range. The as-of timestamp is the
// caller-supplied substitute for missing end dates in the behavior join;
// the pipeline never reads the system clock itself.
type Joiner struct {
	meta map[string]*models.DeploymentMetadata
	asOf time.Time
}

// NewJoiner indexes the metadata rows by deployment id.
func NewJoiner(meta []*models.DeploymentMetadata, asOf time.Time) *Joiner {
	index := make(map[string]*models.DeploymentMetadata, len(meta))
	for _, m := range meta {
		index[m.DeployID] = m
	}
	return &Joiner{meta: index, asOf: asOf.UTC()}
}

// joinState accumulates report entries across the rows of one table.
type joinState struct {
	report     JoinReport
	gapSeen    map[string]bool
	boundsSeen map[string]bool
	matched    map[string]bool
}

func newJoinState() *joinState {
	return &joinState{
		gapSeen:    make(map[string]bool),
		boundsSeen: make(map[string]bool),
		matched:    make(map[string]bool),
	}
}

// resolve looks up metadata for a deployment, recording a gap when it is
// absent and a missing-bounds report when start or end is null.
func (j *Joiner) resolve(s *joinState, deployID string) (*models.DeploymentMetadata, bool) {
	m, ok := j.meta[deployID]
	if !ok {
		if !s.gapSeen[deployID] {
			s.gapSeen[deployID] = true
			s.report.MetadataGaps = append(s.report.MetadataGaps, deployID)
		}
		return nil, false
	}
	s.matched[deployID] = true
	if (m.DeployStart == nil || m.DeployEnd == nil) && !s.boundsSeen[deployID] {
		s.boundsSeen[deployID] = true
		s.report.MissingBounds = append(s.report.MissingBounds, deployID)
	}
	return m, true
}

func (j *Joiner) finish(s *joinState) *JoinReport {
	for deployID := range j.meta {
		if !s.matched[deployID] {
			s.report.UnmatchedMetadata = append(s.report.UnmatchedMetadata, deployID)
		}
	}
	sort.Strings(s.report.MetadataGaps)
	sort.Strings(s.report.MissingBounds)
	sort.Strings(s.report.UnmatchedMetadata)
	return &s.report
}

// inRange reports whether ts falls inside [start, end]. When either bound
// is nil the row passes unfiltered; incomplete metadata is intentionally
// inclusive.
func inRange(ts time.Time, start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	return !ts.Before(*start) && !ts.After(*end)
}

// JoinLocations right-joins deployment metadata onto the tidy location
// table and filters fixes to each deployment's active range.
func (j *Joiner) JoinLocations(table models.LocationTable) (models.LocationTable, *JoinReport) {
	s := newJoinState()
	out := make(models.LocationTable, 0, len(table))
	for _, row := range table {
		m, ok := j.resolve(s, row.DeployID)
		if !ok {
			continue
		}
		if !inRange(row.Date, m.DeployStart, m.DeployEnd) {
			s.report.RowsFiltered++
			continue
		}
		row.Meta = models.JoinedMetadata{
			DeployStart: m.DeployStart,
			DeployEnd:   m.DeployEnd,
			AgeClass:    m.AgeClass,
			Sex:         m.Sex,
		}
		out = append(out, row)
	}
	return out, j.finish(s)
}

// JoinPercent right-joins deployment metadata onto the percent-dry table
// and filters hours to each deployment's active range.
func (j *Joiner) JoinPercent(table models.PercentTable) (models.PercentTable, *JoinReport) {
	s := newJoinState()
	out := make(models.PercentTable, 0, len(table))
	for _, row := range table {
		m, ok := j.resolve(s, row.DeployID)
		if !ok {
			continue
		}
		if !inRange(row.Hour, m.DeployStart, m.DeployEnd) {
			s.report.RowsFiltered++
			continue
		}
		row.Meta = models.JoinedMetadata{
			DeployStart: m.DeployStart,
			DeployEnd:   m.DeployEnd,
			AgeClass:    m.AgeClass,
			Sex:         m.Sex,
		}
		out = append(out, row)
	}
	return out, j.finish(s)
}

// JoinBehavior right-joins deployment metadata onto a behavior table.
// A missing end date is substituted with the as-of timestamp so every
// deployment has a closed interval for the date filter; the substitution
// is still reported as a missing bound.
func (j *Joiner) JoinBehavior(table models.BehaviorTable) (models.BehaviorTable, *JoinReport) {
	s := newJoinState()
	out := make(models.BehaviorTable, 0, len(table))
	for _, row := range table {
		m, ok := j.resolve(s, row.DeployID)
		if !ok {
			continue
		}
		end := m.DeployEnd
		if end == nil {
			asOf := j.asOf
			end = &asOf
		}
		if !inRange(row.Start, m.DeployStart, end) {
			s.report.RowsFiltered++
			continue
		}
		row.Meta = models.JoinedMetadata{
			DeployStart: m.DeployStart,
			DeployEnd:   end,
			AgeClass:    m.AgeClass,
			Sex:         m.Sex,
		}
		out = append(out, row)
	}
	return out, j.finish(s)
}
