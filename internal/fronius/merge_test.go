package fronius

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jgoulah/pvrelay/pkg/models"
)

func TestBuildMergedProfileExample(t *testing.T) {
	const t0 = int64(1761004800)

	energy := models.ArchiveSeries{0: 50, 300: 20}
	voltage := models.ArchiveSeries{0: 240, 300: 241}

	// The query starts one interval after the checkpoint
	profile, orphans := BuildMergedProfile(energy, voltage, t0+300, 1000)

	assert.Equal(t, []models.Reading{
		{Timestamp: t0 + 300, DayEnergy: 1050, Voltage: 240},
		{Timestamp: t0 + 600, DayEnergy: 1070, Voltage: 241},
	}, profile)
	assert.Empty(t, orphans)
}

func TestBuildMergedProfileDropsZeroVoltage(t *testing.T) {
	energy := models.ArchiveSeries{0: 0, 300: 0, 600: 12, 900: 30, 1200: 5}
	voltage := models.ArchiveSeries{0: 0, 600: 238.5, 900: 239, 1200: 0}

	profile, _ := BuildMergedProfile(energy, voltage, 1000, 0)

	// Energy still accumulates through the dropped readings
	assert.Equal(t, []models.Reading{
		{Timestamp: 1600, DayEnergy: 12, Voltage: 238.5},
		{Timestamp: 1900, DayEnergy: 42, Voltage: 239},
	}, profile)
}

func TestBuildMergedProfileOrphanVoltage(t *testing.T) {
	energy := models.ArchiveSeries{300: 10}
	voltage := models.ArchiveSeries{0: 230, 300: 231, 600: 232}

	profile, orphans := BuildMergedProfile(energy, voltage, 0, 100)

	assert.Equal(t, []models.Reading{{Timestamp: 300, DayEnergy: 110, Voltage: 231}}, profile)
	assert.Equal(t, []int64{0, 600}, orphans)
}

func TestBuildMergedProfileEmpty(t *testing.T) {
	profile, orphans := BuildMergedProfile(models.ArchiveSeries{}, models.ArchiveSeries{}, 0, 0)
	assert.Empty(t, profile)
	assert.Empty(t, orphans)

	profile, orphans = BuildMergedProfile(models.ArchiveSeries{0: 5}, nil, 0, 0)
	assert.Empty(t, profile, "no voltage means nothing is measured yet")
	assert.Empty(t, orphans)
}

func TestBuildMergedProfileSortedAndNonZero(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		energy := models.ArchiveSeries{}
		voltage := models.ArchiveSeries{}
		n := rng.Intn(80)
		for j := 0; j < n; j++ {
			offset := int64(rng.Intn(288)) * models.ReadingInterval
			energy[offset] = float64(rng.Intn(100))
			if rng.Intn(4) > 0 {
				voltage[offset] = float64(rng.Intn(3)) * 120
			}
		}
		base := int64(rng.Intn(1 << 30))

		profile, _ := BuildMergedProfile(energy, voltage, base, float64(rng.Intn(10000)))

		assert.True(t, sort.SliceIsSorted(profile, func(a, b int) bool {
			return profile[a].Timestamp < profile[b].Timestamp
		}), "profile must be sorted by timestamp")

		for k, r := range profile {
			assert.NotZero(t, r.Voltage)
			if k > 0 {
				assert.GreaterOrEqual(t, r.DayEnergy, profile[k-1].DayEnergy, "day energy must not decrease")
			}
		}
	}
}
