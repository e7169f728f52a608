package fronius

import (
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/jgoulah/pvrelay/pkg/models"
)

// BuildMergedProfile pairs the energy and voltage series by offset.
//
// Energy samples are per-interval increments, so they are accumulated onto
// baseEnergy in offset order to give the running day total. Readings without a
// voltage sample are left out; the inverter reports 0 V while it is not
// measuring. Voltage offsets with no energy sample are returned as orphans.
func BuildMergedProfile(energy, voltage models.ArchiveSeries, baseTimestamp int64, baseEnergy float64) (profile []models.Reading, orphans []int64) {
	energyOffsets := sortedKeys(energy)
	byOffset := make(map[int64]*models.Reading, len(energyOffsets))

	dayEnergy := baseEnergy
	for _, offset := range energyOffsets {
		dayEnergy += energy[offset]
		byOffset[offset] = &models.Reading{
			Timestamp: baseTimestamp + offset,
			DayEnergy: dayEnergy,
		}
	}

	for _, offset := range sortedKeys(voltage) {
		r, ok := byOffset[offset]
		if !ok {
			orphans = append(orphans, offset)
			continue
		}
		r.Voltage = voltage[offset]
	}

	profile = make([]models.Reading, 0, len(energyOffsets))
	for _, offset := range energyOffsets {
		if r := byOffset[offset]; r.Voltage != 0 {
			profile = append(profile, *r)
		}
	}
	return profile, orphans
}

func sortedKeys[K constraints.Integer, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
