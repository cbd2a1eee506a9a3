package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/linguaprep/exam-service/internal/models"
)

func TestParseDurationToMinutes(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  *int
	}{
		{"int passes through as minutes", 45, intPtr(45)},
		{"int64 passes through", int64(30), intPtr(30)},
		{"json float64 passes through", float64(60), intPtr(60)},
		{"clock format", "01:20:00", intPtr(80)},
		{"clock format with seconds below a minute", "00:45:30", intPtr(45)},
		{"clock format seconds accumulate", "00:00:120", intPtr(2)},
		{"iso8601", "PT1H20M", intPtr(80)},
		{"iso8601 lower case", "pt45m", intPtr(45)},
		{"iso8601 days", "P1D", intPtr(1440)},
		{"empty string", "", nil},
		{"garbage string", "garbage", nil},
		{"two part clock is not accepted", "90:00", nil},
		{"negative clock part", "01:-5:00", nil},
		{"nil value", nil, nil},
		{"unsupported type", []string{"45"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDurationToMinutes(tt.value)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestCalculateExamDuration(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("explicit duration wins over everything", func(t *testing.T) {
		end := now.Add(5 * time.Minute)
		task := &models.Task{
			DurationMinutes: intPtr(40),
			StartTime:       &now,
			EndTime:         &end,
			CustomContent:   datatypes.JSON(`{"time_limit_minutes": 99}`),
		}

		got := CalculateExamDuration(task, now)
		if assert.NotNil(t, got) {
			assert.Equal(t, 40*60, *got)
		}
	})

	t.Run("window applies when no explicit duration", func(t *testing.T) {
		end := now.Add(25 * time.Minute)
		task := &models.Task{
			StartTime:     &now,
			EndTime:       &end,
			CustomContent: datatypes.JSON(`{"time_limit_minutes": 99}`),
		}

		got := CalculateExamDuration(task, now)
		if assert.NotNil(t, got) {
			assert.Equal(t, 25*60, *got)
		}
	})

	t.Run("window already passed clamps to zero", func(t *testing.T) {
		start := now.Add(-2 * time.Hour)
		end := now.Add(-time.Hour)
		task := &models.Task{StartTime: &start, EndTime: &end}

		got := CalculateExamDuration(task, now)
		if assert.NotNil(t, got) {
			assert.Equal(t, 0, *got)
		}
	})

	t.Run("custom content time limit is the last source", func(t *testing.T) {
		task := &models.Task{CustomContent: datatypes.JSON(`{"time_limit_minutes": 30}`)}

		got := CalculateExamDuration(task, now)
		if assert.NotNil(t, got) {
			assert.Equal(t, 30*60, *got)
		}
	})

	t.Run("no source means untimed", func(t *testing.T) {
		assert.Nil(t, CalculateExamDuration(&models.Task{}, now))
	})

	t.Run("zero duration does not count as a source", func(t *testing.T) {
		task := &models.Task{
			DurationMinutes: intPtr(0),
			CustomContent:   datatypes.JSON(`{"time_limit_minutes": 15}`),
		}

		got := CalculateExamDuration(task, now)
		if assert.NotNil(t, got) {
			assert.Equal(t, 15*60, *got)
		}
	})

	t.Run("malformed custom content degrades to untimed", func(t *testing.T) {
		task := &models.Task{CustomContent: datatypes.JSON(`{not json`)}
		assert.Nil(t, CalculateExamDuration(task, now))
	})

	t.Run("nil task is untimed", func(t *testing.T) {
		assert.Nil(t, CalculateExamDuration(nil, now))
	})

	t.Run("start time alone is not a window", func(t *testing.T) {
		task := &models.Task{StartTime: &now}
		assert.Nil(t, CalculateExamDuration(task, now))
	})
}
