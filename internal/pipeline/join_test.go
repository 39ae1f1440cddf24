package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seal-telemetry/internal/models"
)

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func metaRow(deployID string, start, end *time.Time) *models.DeploymentMetadata {
	return &models.DeploymentMetadata{
		DeployID:    deployID,
		DeployStart: start,
		DeployEnd:   end,
		AgeClass:    "ADULT",
		Sex:         "F",
	}
}

func TestJoinLocationsAttachesMetadata(t *testing.T) {
	meta := []*models.DeploymentMetadata{
		metaRow("PV01", tsp("2008-04-01 00:00:00"), tsp("2008-09-01 00:00:00")),
	}
	joiner := NewJoiner(meta, ts("2009-01-01 00:00:00"))

	table := models.LocationTable{
		{DeployID: "PV01", Date: ts("2008-04-17 09:00:00")},
	}

	out, report := joiner.JoinLocations(table)
	require.Len(t, out, 1)
	assert.Equal(t, "ADULT", out[0].Meta.AgeClass)
	assert.Equal(t, "F", out[0].Meta.Sex)
	assert.Empty(t, report.MetadataGaps)
	assert.Empty(t, report.MissingBounds)
	assert.Empty(t, report.UnmatchedMetadata)
	assert.Equal(t, 0, report.RowsFiltered)
}

func TestJoinReportsUnmatchedMetadata(t *testing.T) {
	// A metadata row with no derived rows in the table is reported, so
	// that every deployment either matches or shows up in the report.
	meta := []*models.DeploymentMetadata{
		metaRow("PV01", tsp("2008-04-01 00:00:00"), tsp("2008-09-01 00:00:00")),
		metaRow("PV02", tsp("2008-05-01 00:00:00"), tsp("2008-10-01 00:00:00")),
	}
	joiner := NewJoiner(meta, ts("2009-01-01 00:00:00"))

	table := models.LocationTable{
		{DeployID: "PV01", Date: ts("2008-04-17 09:00:00")},
	}

	_, report := joiner.JoinLocations(table)
	assert.Equal(t, []string{"PV02"}, report.UnmatchedMetadata)
}

func TestJoinLocationsDateRangeFilter(t *testing.T) {
	meta := []*models.DeploymentMetadata{
		metaRow("PV01", tsp("2008-04-01 00:00:00"), tsp("2008-09-01 00:00:00")),
	}
	joiner := NewJoiner(meta, ts("2009-01-01 00:00:00"))

	table := models.LocationTable{
		{DeployID: "PV01", Date: ts("2008-03-31 23:59:59")}, // before start
		{DeployID: "PV01", Date: ts("2008-04-01 00:00:00")}, // boundary, kept
		{DeployID: "PV01", Date: ts("2008-09-01 00:00:00")}, // boundary, kept
		{DeployID: "PV01", Date: ts("2008-09-02 00:00:00")}, // after end
	}

	out, report := joiner.JoinLocations(table)
	assert.Len(t, out, 2)
	assert.Equal(t, 2, report.RowsFiltered)
}

func TestJoinReportsMetadataGap(t *testing.T) {
	joiner := NewJoiner(nil, ts("2009-01-01 00:00:00"))

	table := models.PercentTable{
		{DeployID: "PV99", Hour: ts("2008-04-17 09:00:00"), PercentDry: 50},
		{DeployID: "PV99", Hour: ts("2008-04-17 10:00:00"), PercentDry: 60},
	}

	out, report := joiner.JoinPercent(table)
	assert.Empty(t, out)
	// The gap is reported once per deployment, not per row.
	assert.Equal(t, []string{"PV99"}, report.MetadataGaps)
}

func TestJoinMissingBoundsPassThrough(t *testing.T) {
	// Metadata without an end date: rows pass unfiltered and the
	// deployment is reported, not dropped.
	meta := []*models.DeploymentMetadata{
		metaRow("PV01", tsp("2008-04-01 00:00:00"), nil),
	}
	joiner := NewJoiner(meta, ts("2009-01-01 00:00:00"))

	table := models.PercentTable{
		{DeployID: "PV01", Hour: ts("2014-01-01 00:00:00"), PercentDry: 10},
	}

	out, report := joiner.JoinPercent(table)
	assert.Len(t, out, 1)
	assert.Equal(t, []string{"PV01"}, report.MissingBounds)
	assert.Equal(t, 0, report.RowsFiltered)
}

func TestJoinBehaviorSubstitutesAsOfForMissingEnd(t *testing.T) {
	asOf := ts("2008-10-01 00:00:00")
	meta := []*models.DeploymentMetadata{
		metaRow("PV01", tsp("2008-04-01 00:00:00"), nil),
	}
	joiner := NewJoiner(meta, asOf)

	table := models.BehaviorTable{
		{DeployID: "PV01", What: "Dive", Start: ts("2008-04-17 09:00:00")},
		{DeployID: "PV01", What: "Dive", Start: ts("2008-11-01 09:00:00")}, // past as-of
	}

	out, report := joiner.JoinBehavior(table)
	require.Len(t, out, 1)

	// The placeholder end date is visible in the joined row and the
	// substitution is still reported as a missing bound.
	require.NotNil(t, out[0].Meta.DeployEnd)
	assert.Equal(t, asOf, *out[0].Meta.DeployEnd)
	assert.Equal(t, []string{"PV01"}, report.MissingBounds)
	assert.Equal(t, 1, report.RowsFiltered)
}

func TestJoinBehaviorKeepsRealEndDate(t *testing.T) {
	end := tsp("2008-09-01 00:00:00")
	meta := []*models.DeploymentMetadata{
		metaRow("PV01", tsp("2008-04-01 00:00:00"), end),
	}
	joiner := NewJoiner(meta, ts("2009-01-01 00:00:00"))

	table := models.BehaviorTable{
		{DeployID: "PV01", What: "Surface", Start: ts("2008-04-17 09:00:00")},
	}

	out, report := joiner.JoinBehavior(table)
	require.Len(t, out, 1)
	assert.Equal(t, *end, *out[0].Meta.DeployEnd)
	assert.Empty(t, report.MissingBounds)
}

func TestJoinGapsSortedAcrossDeployments(t *testing.T) {
	meta := []*models.DeploymentMetadata{
		metaRow("PV02", tsp("2008-04-01 00:00:00"), tsp("2008-09-01 00:00:00")),
	}
	joiner := NewJoiner(meta, ts("2009-01-01 00:00:00"))

	table := models.LocationTable{
		{DeployID: "PV99", Date: ts("2008-04-17 09:00:00")},
		{DeployID: "PV00", Date: ts("2008-04-17 09:00:00")},
		{DeployID: "PV02", Date: ts("2008-04-17 09:00:00")},
	}

	out, report := joiner.JoinLocations(table)
	assert.Len(t, out, 1)
	assert.Equal(t, []string{"PV00", "PV99"}, report.MetadataGaps)
}
