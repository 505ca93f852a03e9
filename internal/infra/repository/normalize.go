package repository

import (
	"time"

	"github.com/zacharykka/qa-manager/internal/domain"
)

// decodeEnvironment 将原始文档映射为 Environment。
// 历史文档存在三类别名，逐一兜底：
//   - "cenarios" → scenarios 映射（老版本字段名）
//   - "usersPresent" → present_users_ids
//   - "timeTracking" 的 start/end 可能是毫秒数而非时间字符串
func decodeEnvironment(id string, data map[string]any) (*domain.Environment, error) {
	env, err := fromDoc[domain.Environment](data)
	if err != nil {
		return nil, err
	}
	if env.ID == "" {
		env.ID = id
	}

	if len(env.Scenarios) == 0 {
		if legacy, ok := data["cenarios"].(map[string]any); ok {
			scenarios, err := fromDoc[map[string]domain.EnvironmentScenario](legacy)
			if err == nil {
				env.Scenarios = *scenarios
			}
		}
	}
	if env.Scenarios == nil {
		env.Scenarios = map[string]domain.EnvironmentScenario{}
	}

	if env.PresentUsersIDs == nil {
		if legacy, ok := data["usersPresent"].([]any); ok {
			env.PresentUsersIDs = toStringSlice(legacy)
		}
	}
	if env.PresentUsersIDs == nil {
		env.PresentUsersIDs = []string{}
	}
	if env.Participants == nil {
		env.Participants = []string{}
	}

	if legacy, ok := data["timeTracking"].(map[string]any); ok {
		env.TimeTracking = decodeTimeTracking(legacy)
	}

	if env.TotalCenarios == 0 {
		env.TotalCenarios = len(env.Scenarios)
	}

	return env, nil
}

// encodeEnvironment 以规范字段写回，历史别名在读取后即被替换。
func encodeEnvironment(env *domain.Environment) (map[string]any, error) {
	if env.Scenarios == nil {
		env.Scenarios = map[string]domain.EnvironmentScenario{}
	}
	if env.PresentUsersIDs == nil {
		env.PresentUsersIDs = []string{}
	}
	if env.Participants == nil {
		env.Participants = []string{}
	}
	return toDoc(env)
}

func decodeTimeTracking(data map[string]any) domain.TimeTracking {
	tracking := domain.TimeTracking{
		Start: decodeTimestamp(data["start"]),
		End:   decodeTimestamp(data["end"]),
	}
	switch total := data["totalMs"].(type) {
	case float64:
		tracking.TotalMs = int64(total)
	case int64:
		tracking.TotalMs = total
	}
	return tracking
}

// decodeTimestamp 接受 RFC3339 字符串或 Unix 毫秒数。
func decodeTimestamp(value any) *time.Time {
	switch typed := value.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, typed); err == nil {
			return &parsed
		}
	case float64:
		parsed := time.UnixMilli(int64(typed)).UTC()
		return &parsed
	}
	return nil
}

func toStringSlice(values []any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if s, ok := value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
