package timing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/peterhellberg/duration"

	"github.com/linguaprep/exam-service/internal/models"
)

// ParseDurationToMinutes normalizes heterogeneous duration representations
// into whole minutes. Numeric values are already minutes and pass through.
// Strings are accepted in HH:MM:SS form or ISO-8601 PT form (case-insensitive).
// Everything else resolves to nil, meaning "unspecified" rather than zero;
// an unparseable duration is not an error.
func ParseDurationToMinutes(value interface{}) *int {
	switch v := value.(type) {
	case int:
		return intPtr(v)
	case int32:
		return intPtr(int(v))
	case int64:
		return intPtr(int(v))
	case float64:
		// JSON numbers decode as float64
		return intPtr(int(v))
	case string:
		return parseDurationString(v)
	default:
		return nil
	}
}

func parseDurationString(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if minutes, ok := parseClock(s); ok {
		return intPtr(minutes)
	}

	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "P") {
		if d, err := duration.Parse(upper); err == nil {
			return intPtr(int(d / time.Minute))
		}
	}

	return nil
}

// parseClock handles HH:MM:SS — exactly three non-empty numeric parts.
// Seconds contribute whole minutes only.
func parseClock(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}

	return nums[0]*60 + nums[1] + nums[2]/60, true
}

// CalculateExamDuration resolves the session duration in seconds from a
// task descriptor, by strict priority: an explicit positive duration on the
// task, then a start/end window measured against now, then a nested custom
// content time limit. Only the first matching source is used. A nil result
// means the session is untimed.
func CalculateExamDuration(task *models.Task, now time.Time) *int {
	if task == nil {
		return nil
	}

	if task.DurationMinutes != nil && *task.DurationMinutes > 0 {
		return intPtr(*task.DurationMinutes * 60)
	}

	if task.StartTime != nil && task.EndTime != nil {
		remaining := int(task.EndTime.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		return intPtr(remaining)
	}

	if limit := customTimeLimit(task.CustomContent); limit != nil && *limit > 0 {
		return intPtr(*limit * 60)
	}

	return nil
}

func customTimeLimit(raw []byte) *int {
	if len(raw) == 0 {
		return nil
	}
	var content models.CustomContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil // malformed custom content degrades to untimed
	}
	return content.TimeLimitMinutes
}

func intPtr(n int) *int {
	return &n
}
