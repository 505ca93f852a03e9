package environment

import (
	"errors"
	"sort"
	"time"

	"github.com/zacharykka/qa-manager/internal/domain"
)

// errNoTransition 标记同状态转移，调用方据此返回原值而不落库。
var errNoTransition = errors.New("environment: no transition")

// applyTransition 在环境对象上执行一次状态转移，含守卫与副作用。
// 时间基准由调用方传入，保证事务重试时可复算。
func applyTransition(env *domain.Environment, target domain.EnvironmentStatus, userID string, now time.Time) error {
	if env.Status == target {
		return errNoTransition
	}

	switch target {
	case domain.EnvironmentInProgress:
		// 进入执行态总是重新武装全部场景，覆盖此前的任何保存
		for id, scenario := range env.Scenarios {
			scenario.Status = domain.ScenarioEmAndamento
			scenario.StatusMobile = domain.ScenarioEmAndamento
			scenario.StatusDesktop = domain.ScenarioEmAndamento
			env.Scenarios[id] = scenario
		}
	case domain.EnvironmentDone:
		if ids := pendingScenarioIDs(env); len(ids) > 0 {
			return domain.ErrPendingScenarios
		}
		if userID != "" {
			concludedBy := userID
			env.ConcludedBy = &concludedBy
		} else {
			env.ConcludedBy = nil
		}
		// 收尾时把在场名单并入持久的参与者名册
		env.Participants = union(env.Participants, env.PresentUsersIDs)
	}

	env.TimeTracking = recomputeTimeTracking(env.TimeTracking, target, now)
	env.Status = target
	return nil
}

// recomputeTimeTracking 是目标状态与当前计时的纯函数。
func recomputeTimeTracking(tracking domain.TimeTracking, target domain.EnvironmentStatus, now time.Time) domain.TimeTracking {
	switch target {
	case domain.EnvironmentBacklog:
		// 重新开始会完全丢弃已累计的时间
		return domain.TimeTracking{}
	case domain.EnvironmentInProgress:
		if tracking.Start == nil {
			start := now
			tracking.Start = &start
		}
		tracking.End = nil
		return tracking
	case domain.EnvironmentDone:
		start := now
		if tracking.Start != nil {
			start = *tracking.Start
		}
		tracking.TotalMs += now.Sub(start).Milliseconds()
		end := now
		tracking.End = &end
		return tracking
	default:
		return tracking
	}
}

// pendingScenarioIDs 返回任一平台状态不在完成集合内的场景 ID，升序排列。
func pendingScenarioIDs(env *domain.Environment) []string {
	var ids []string
	for id, scenario := range env.Scenarios {
		for _, platform := range domain.Platforms() {
			if !scenario.ResolveStatus(platform).Completed() {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// union 合并两个 ID 列表，保持首次出现顺序并去重。
func union(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
