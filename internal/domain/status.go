package domain

// EnvironmentStatus 表示环境的生命周期状态。
type EnvironmentStatus string

const (
	EnvironmentBacklog    EnvironmentStatus = "backlog"
	EnvironmentInProgress EnvironmentStatus = "in_progress"
	EnvironmentDone       EnvironmentStatus = "done"
)

// ValidEnvironmentStatus 判断状态值是否合法。
func ValidEnvironmentStatus(s EnvironmentStatus) bool {
	switch s {
	case EnvironmentBacklog, EnvironmentInProgress, EnvironmentDone:
		return true
	default:
		return false
	}
}

// ScenarioStatus 表示场景在某个平台上的执行状态。
type ScenarioStatus string

const (
	ScenarioPendente              ScenarioStatus = "pendente"
	ScenarioEmAndamento           ScenarioStatus = "em_andamento"
	ScenarioConcluido             ScenarioStatus = "concluido"
	ScenarioConcluidoAutomatizado ScenarioStatus = "concluido_automatizado"
	ScenarioNaoSeAplica           ScenarioStatus = "nao_se_aplica"
	ScenarioImpedido              ScenarioStatus = "impedido"
)

// Completed 判断状态是否属于完成集合，用于环境收尾的放行判定。
func (s ScenarioStatus) Completed() bool {
	switch s {
	case ScenarioConcluido, ScenarioConcluidoAutomatizado, ScenarioNaoSeAplica:
		return true
	default:
		return false
	}
}

// ValidScenarioStatus 判断场景状态值是否合法。
func ValidScenarioStatus(s ScenarioStatus) bool {
	switch s {
	case ScenarioPendente, ScenarioEmAndamento, ScenarioConcluido,
		ScenarioConcluidoAutomatizado, ScenarioNaoSeAplica, ScenarioImpedido:
		return true
	default:
		return false
	}
}

// Platform 表示独立跟踪完成度的执行平台。
type Platform string

const (
	PlatformMobile  Platform = "mobile"
	PlatformDesktop Platform = "desktop"
)

// Platforms 返回全部平台，聚合统计按此顺序累加。
func Platforms() []Platform {
	return []Platform{PlatformMobile, PlatformDesktop}
}

// ResolveStatus 返回指定平台的状态；平台字段缺省时回退到旧的单状态字段。
func (sc EnvironmentScenario) ResolveStatus(p Platform) ScenarioStatus {
	switch p {
	case PlatformMobile:
		if sc.StatusMobile != "" {
			return sc.StatusMobile
		}
	case PlatformDesktop:
		if sc.StatusDesktop != "" {
			return sc.StatusDesktop
		}
	}
	return sc.Status
}

// BugStatus 表示缺陷自身的状态，与环境状态相互独立。
type BugStatus string

const (
	BugAberto      BugStatus = "aberto"
	BugEmAndamento BugStatus = "em_andamento"
	BugResolvido   BugStatus = "resolvido"
)

// ValidBugStatus 判断缺陷状态值是否合法。
func ValidBugStatus(s BugStatus) bool {
	switch s {
	case BugAberto, BugEmAndamento, BugResolvido:
		return true
	default:
		return false
	}
}
