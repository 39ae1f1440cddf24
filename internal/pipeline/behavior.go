package pipeline

import (
	"sort"

	"seal-telemetry/internal/models"
)

// WindowSeconds is the fixed length of a behavior summary window: 5 days.
// Windows are anchored at each deployment's earliest retained event
// start, not at any calendar boundary.
const WindowSeconds int64 = 432000

// Retained behavior event types. Everything else (messages, status rows)
// is dropped before windowing.
const (
	EventDive    = "Dive"
	EventSurface = "Surface"
)

// WindowResult is the output of the behavior windowing step, before the
// metadata join and the per-type split.
type WindowResult struct {
	Table models.BehaviorTable
	// OutOfRangeWindows counts (deployment, window) groups whose active
	// proportion exceeds 1.0. Such windows are legitimate output but a
	// data-quality signal, so they are surfaced rather than clamped.
	OutOfRangeWindows int
}

// ComputeWindows filters behavior events to Dive/Surface, computes event
// durations, partitions each deployment's timeline into consecutive
// 5-day windows anchored at its first event, and annotates every event
// with its window's total active-duration proportion.
//
// A negative duration is a data-integrity error and aborts the run.
func ComputeWindows(records []models.RawBehaviorRecord) (*WindowResult, error) {
	table := make(models.BehaviorTable, 0, len(records))
	for _, rec := range records {
		if rec.What != EventDive && rec.What != EventSurface {
			continue
		}
		duration := rec.End.Sub(rec.Start).Seconds()
		if duration < 0 {
			return nil, &IntegrityError{
				DeployID: rec.DeployID,
				Start:    rec.Start,
				End:      rec.End,
				Reason:   "event end precedes event start",
			}
		}
		table = append(table, models.TidyBehavior{
			DeployID:        rec.DeployID,
			Start:           rec.Start,
			End:             rec.End,
			What:            rec.What,
			DurationSeconds: duration,
			DepthMin:        rec.DepthMin,
			DepthMax:        rec.DepthMax,
		})
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].DeployID != table[j].DeployID {
			return table[i].DeployID < table[j].DeployID
		}
		if !table[i].Start.Equal(table[j].Start) {
			return table[i].Start.Before(table[j].Start)
		}
		return table[i].End.Before(table[j].End)
	})

	// First pass: window index from the offset to the deployment anchor.
	// The table is sorted, so the anchor is the first event per deployment.
	type windowKey struct {
		deployID string
		index    int
	}
	var anchor int64
	currentDeploy := ""
	sums := make(map[windowKey]float64)
	for i := range table {
		if table[i].DeployID != currentDeploy {
			currentDeploy = table[i].DeployID
			anchor = table[i].Start.Unix()
		}
		offset := table[i].Start.Unix() - anchor
		table[i].WindowIndex = int(offset / WindowSeconds)
		sums[windowKey{table[i].DeployID, table[i].WindowIndex}] += table[i].DurationSeconds
	}

	// Second pass: per-window proportion of the fixed window length.
	res := &WindowResult{}
	seenOver := make(map[windowKey]bool)
	for i := range table {
		key := windowKey{table[i].DeployID, table[i].WindowIndex}
		table[i].WindowActiveProportion = sums[key] / float64(WindowSeconds)
		if table[i].WindowActiveProportion > 1.0 && !seenOver[key] {
			seenOver[key] = true
			res.OutOfRangeWindows++
		}
	}
	res.Table = table
	return res, nil
}

// SplitByWhat partitions a behavior table into its Dive-only and
// Surface-only datasets.
func SplitByWhat(table models.BehaviorTable) (dive, surface models.BehaviorTable) {
	dive = make(models.BehaviorTable, 0, len(table))
	surface = make(models.BehaviorTable, 0, len(table))
	for _, row := range table {
		switch row.What {
		case EventDive:
			dive = append(dive, row)
		case EventSurface:
			surface = append(surface, row)
		}
	}
	return dive, surface
}
