package environment

import (
	"math"

	"github.com/zacharykka/qa-manager/internal/domain"
)

// PlatformStats 是单个平台上的场景完成统计。
type PlatformStats struct {
	Platform  domain.Platform `json:"platform"`
	Concluded int             `json:"concluded"`
	Running   int             `json:"running"`
	Pending   int             `json:"pending"`
	Total     int             `json:"total"`
	Progress  int             `json:"progress"`
}

// CombinedStats 是两个平台的合计。移动端与桌面端作为独立完成轴计数，
// 因此 Total 是场景数的两倍；这是沿袭下来的报表口径，不要"修正"。
type CombinedStats struct {
	Mobile    PlatformStats `json:"mobile"`
	Desktop   PlatformStats `json:"desktop"`
	Concluded int           `json:"concluded"`
	Running   int           `json:"running"`
	Pending   int           `json:"pending"`
	Total     int           `json:"total"`
	Progress  int           `json:"progress"`
}

// StatsForPlatform 把每个场景恰好归入一个桶：完成、执行中、待处理。
func StatsForPlatform(env *domain.Environment, platform domain.Platform) PlatformStats {
	stats := PlatformStats{Platform: platform}
	for _, scenario := range env.Scenarios {
		status := scenario.ResolveStatus(platform)
		switch {
		case status.Completed():
			stats.Concluded++
		case status == domain.ScenarioEmAndamento:
			stats.Running++
		default:
			stats.Pending++
		}
		stats.Total++
	}
	stats.Progress = progress(stats.Concluded, stats.Total)
	return stats
}

// Stats 汇总两个平台的统计。
func Stats(env *domain.Environment) CombinedStats {
	mobile := StatsForPlatform(env, domain.PlatformMobile)
	desktop := StatsForPlatform(env, domain.PlatformDesktop)

	combined := CombinedStats{
		Mobile:    mobile,
		Desktop:   desktop,
		Concluded: mobile.Concluded + desktop.Concluded,
		Running:   mobile.Running + desktop.Running,
		Pending:   mobile.Pending + desktop.Pending,
		Total:     mobile.Total + desktop.Total,
	}
	combined.Progress = progress(combined.Concluded, combined.Total)
	return combined
}

func progress(concluded, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(concluded) / float64(total) * 100))
}
