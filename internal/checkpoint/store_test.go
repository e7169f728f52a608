package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/pvrelay/pkg/models"
)

var fixedNow = time.Date(2025, 10, 21, 9, 26, 45, 0, time.UTC)

func newTestStore(t *testing.T, dryRun bool) (*Store, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := New(filepath.Join(t.TempDir(), "lastReading.json"), dryRun, logger)
	s.now = func() time.Time { return fixedNow }
	return s, hook
}

func TestLoadMissingReturnsMidnight(t *testing.T) {
	s, hook := newTestStore(t, false)

	cp := s.Load()

	midnight := time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.Reading{Timestamp: midnight.Unix()}, cp)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, "a missing checkpoint is not a warning")
	}
}

func TestLoadCorruptReturnsMidnight(t *testing.T) {
	s, hook := newTestStore(t, false)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	cp := s.Load()

	assert.Equal(t, models.StartOfDay(fixedNow), cp)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLoadReadsCamelCaseKeys(t *testing.T) {
	s, _ := newTestStore(t, false)
	content := `{"dayEnergy": 1234.5, "inverterVoltage": 241.3, "ts": 1761038700}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0644))

	cp := s.Load()

	assert.Equal(t, models.Reading{Timestamp: 1761038700, DayEnergy: 1234.5, Voltage: 241.3}, cp)
}

func TestSaveThenLoad(t *testing.T) {
	s, _ := newTestStore(t, false)
	want := models.Reading{Timestamp: 1761038700, DayEnergy: 1070, Voltage: 241}

	require.NoError(t, s.Save(want))
	assert.Equal(t, want, s.Load())

	// Same input, same stored bytes
	first, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NoError(t, s.Save(want))
	second, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveDryRunDoesNotWrite(t *testing.T) {
	s, _ := newTestStore(t, true)

	err := s.Save(models.Reading{Timestamp: 1761038700, DayEnergy: 5, Voltage: 230})
	require.NoError(t, err)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRollover(t *testing.T) {
	today := time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cp       models.Reading
		want     models.Reading
		replaced bool
	}{
		{
			name:     "same day kept",
			cp:       models.Reading{Timestamp: today.Add(8 * time.Hour).Unix(), DayEnergy: 900, Voltage: 240},
			want:     models.Reading{Timestamp: today.Add(8 * time.Hour).Unix(), DayEnergy: 900, Voltage: 240},
			replaced: false,
		},
		{
			name:     "exactly midnight kept",
			cp:       models.Reading{Timestamp: today.Unix()},
			want:     models.Reading{Timestamp: today.Unix()},
			replaced: false,
		},
		{
			name:     "yesterday reset",
			cp:       models.Reading{Timestamp: today.Add(-10 * time.Minute).Unix(), DayEnergy: 15000, Voltage: 238},
			want:     models.Reading{Timestamp: today.Unix()},
			replaced: true,
		},
		{
			name:     "future day reset",
			cp:       models.Reading{Timestamp: today.Add(30 * time.Hour).Unix(), DayEnergy: 10},
			want:     models.Reading{Timestamp: today.Unix()},
			replaced: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, replaced := Rollover(tt.cp, fixedNow)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.replaced, replaced)
		})
	}
}
