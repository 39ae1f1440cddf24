package pipeline

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"seal-telemetry/internal/models"
)

// percentHistType is the histogram channel that encodes hourly dry
// percentages. Other channels use the bin columns with different
// semantics and are dropped before reshaping.
const percentHistType = "Percent"

// hourlyBins is how many leading bins of a Percent row are hourly values:
// bin 1 is the row's base hour, bin 24 is base + 23h.
const hourlyBins = 24

// ReshapePercentDry unpivots the 24 hourly bins of every Percent
// histogram row into one row per (deploy_id, hour), averaging the values
// that land on the same hour. Missing bins contribute nothing. Output is
// sorted by (deploy_id, hour) so downstream export is deterministic.
func ReshapePercentDry(records []models.RawHistoRecord) models.PercentTable {
	type hourKey struct {
		deployID string
		hour     int64
	}

	values := make(map[hourKey][]float64)
	var order []hourKey

	for _, rec := range records {
		if rec.HistType != percentHistType {
			continue
		}
		base := rec.Date.UTC()
		for bin := 0; bin < hourlyBins; bin++ {
			v := rec.Bins[bin]
			if v == nil {
				continue
			}
			hour := base.Add(time.Duration(bin) * time.Hour)
			key := hourKey{deployID: rec.DeployID, hour: hour.Unix()}
			if _, seen := values[key]; !seen {
				order = append(order, key)
			}
			values[key] = append(values[key], *v)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].deployID != order[j].deployID {
			return order[i].deployID < order[j].deployID
		}
		return order[i].hour < order[j].hour
	})

	table := make(models.PercentTable, 0, len(order))
	for _, key := range order {
		mean, err := stats.Mean(stats.Float64Data(values[key]))
		if err != nil {
			// Unreachable: every key has at least one contribution.
			continue
		}
		table = append(table, models.TidyPercent{
			DeployID:   key.deployID,
			Hour:       time.Unix(key.hour, 0).UTC(),
			PercentDry: mean,
		})
	}
	return table
}
