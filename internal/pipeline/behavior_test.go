package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seal-telemetry/internal/models"
)

func event(deployID, what string, start time.Time, duration time.Duration) models.RawBehaviorRecord {
	return models.RawBehaviorRecord{
		DeployID: deployID,
		What:     what,
		Start:    start,
		End:      start.Add(duration),
	}
}

func TestComputeWindowsProportion(t *testing.T) {
	anchor := ts("2008-04-17 00:00:00")
	records := []models.RawBehaviorRecord{
		event("PV01", "Dive", anchor, 1000*time.Second),
		event("PV01", "Dive", anchor.Add(time.Hour), 2000*time.Second),
		event("PV01", "Dive", anchor.Add(2*time.Hour), 3000*time.Second),
	}

	res, err := ComputeWindows(records)
	require.NoError(t, err)
	require.Len(t, res.Table, 3)

	// Three dives totalling 6000s in one 5-day window.
	want := 6000.0 / 432000.0
	for _, row := range res.Table {
		assert.Equal(t, 0, row.WindowIndex)
		assert.InDelta(t, want, row.WindowActiveProportion, 1e-12)
	}
	assert.InDelta(t, 0.013889, res.Table[0].WindowActiveProportion, 1e-6)
	assert.Equal(t, 0, res.OutOfRangeWindows)
}

func TestComputeWindowsIndexing(t *testing.T) {
	anchor := ts("2008-04-17 00:00:00")
	records := []models.RawBehaviorRecord{
		event("PV01", "Dive", anchor, time.Minute),
		event("PV01", "Dive", anchor.Add(432000*time.Second), time.Minute),
		event("PV01", "Dive", anchor.Add(864000*time.Second), time.Minute),
	}

	res, err := ComputeWindows(records)
	require.NoError(t, err)
	require.Len(t, res.Table, 3)

	// A boundary event lands in the new window, not the old one.
	assert.Equal(t, 0, res.Table[0].WindowIndex)
	assert.Equal(t, 1, res.Table[1].WindowIndex)
	assert.Equal(t, 2, res.Table[2].WindowIndex)
}

func TestComputeWindowsAnchorPerDeployment(t *testing.T) {
	records := []models.RawBehaviorRecord{
		// PV02's first event is later in absolute time; its windows are
		// anchored to its own first event, not PV01's.
		event("PV01", "Dive", ts("2008-04-17 00:00:00"), time.Minute),
		event("PV02", "Dive", ts("2008-06-01 12:00:00"), time.Minute),
		event("PV02", "Dive", ts("2008-06-07 12:00:00"), time.Minute), // +6 days
	}

	res, err := ComputeWindows(records)
	require.NoError(t, err)

	byDeploy := map[string][]int{}
	for _, row := range res.Table {
		byDeploy[row.DeployID] = append(byDeploy[row.DeployID], row.WindowIndex)
	}
	assert.Equal(t, []int{0}, byDeploy["PV01"])
	assert.Equal(t, []int{0, 1}, byDeploy["PV02"])
}

func TestComputeWindowsNegativeDuration(t *testing.T) {
	start := ts("2008-04-17 10:00:00")
	records := []models.RawBehaviorRecord{
		{
			DeployID: "PV01",
			What:     "Dive",
			Start:    start,
			End:      start.Add(-time.Minute),
		},
	}

	_, err := ComputeWindows(records)
	require.Error(t, err)
	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Equal(t, "PV01", integrityErr.DeployID)
	assert.Equal(t, start, integrityErr.Start)
}

func TestComputeWindowsDropsOtherTypes(t *testing.T) {
	anchor := ts("2008-04-17 00:00:00")
	records := []models.RawBehaviorRecord{
		event("PV01", "Dive", anchor, time.Minute),
		event("PV01", "Message", anchor.Add(time.Hour), time.Minute),
		event("PV01", "Surface", anchor.Add(2*time.Hour), time.Minute),
	}

	res, err := ComputeWindows(records)
	require.NoError(t, err)
	require.Len(t, res.Table, 2)
	assert.Equal(t, "Dive", res.Table[0].What)
	assert.Equal(t, "Surface", res.Table[1].What)
}

func TestComputeWindowsOverfullWindowNotClamped(t *testing.T) {
	anchor := ts("2008-04-17 00:00:00")
	// Two overlapping 3-day events in one 5-day window: proportion > 1.
	records := []models.RawBehaviorRecord{
		event("PV01", "Dive", anchor, 72*time.Hour),
		event("PV01", "Dive", anchor.Add(time.Hour), 72*time.Hour),
	}

	res, err := ComputeWindows(records)
	require.NoError(t, err)

	want := (2 * 72 * 3600.0) / 432000.0
	require.Greater(t, want, 1.0)
	for _, row := range res.Table {
		assert.InDelta(t, want, row.WindowActiveProportion, 1e-12)
	}
	assert.Equal(t, 1, res.OutOfRangeWindows)
}

func TestSplitByWhat(t *testing.T) {
	table := models.BehaviorTable{
		{DeployID: "PV01", What: "Dive"},
		{DeployID: "PV01", What: "Surface"},
		{DeployID: "PV01", What: "Dive"},
	}

	dive, surface := SplitByWhat(table)
	assert.Len(t, dive, 2)
	assert.Len(t, surface, 1)
}

func TestComputeWindowsEmptyInput(t *testing.T) {
	res, err := ComputeWindows(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Table)
}
