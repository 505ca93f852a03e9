package domain

import "time"

// Organization 表示多租户空间（一个 QA 团队）。
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User 代表组织内的操作主体。
type User struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	HashedPassword string     `json:"-"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Store 表示被测对象，场景目录与测试套件都挂在其下。
type Store struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Scenario 是目录中的一个测试场景。
type Scenario struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Criticality string    `json:"criticality"`
	Automated   bool      `json:"automated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Suite 表示一组场景的集合，创建环境时按套件生成场景快照。
type Suite struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ScenarioIDs []string  `json:"scenario_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimeTracking 记录环境在执行态累计经过的时间。
type TimeTracking struct {
	Start   *time.Time `json:"start"`
	End     *time.Time `json:"end"`
	TotalMs int64      `json:"totalMs"`
}

// EnvironmentScenario 是场景在某个环境内的快照。
// 快照是拷贝：之后修改目录不会反向影响已有环境。
type EnvironmentScenario struct {
	Title         string         `json:"title"`
	Category      string         `json:"category"`
	Criticality   string         `json:"criticality"`
	Automated     bool           `json:"automated"`
	Status        ScenarioStatus `json:"status"`
	StatusMobile  ScenarioStatus `json:"statusMobile,omitempty"`
	StatusDesktop ScenarioStatus `json:"statusDesktop,omitempty"`
}

// EnvironmentBug 是环境内登记的缺陷，状态独立于环境自身状态。
type EnvironmentBug struct {
	ID            string    `json:"id"`
	EnvironmentID string    `json:"environment_id"`
	ScenarioID    *string   `json:"scenario_id,omitempty"`
	Title         string    `json:"title"`
	Description   *string   `json:"description,omitempty"`
	Status        BugStatus `json:"status"`
	ReportedBy    *string   `json:"reported_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Environment 表示针对某个 Store 的一次执行会话。
type Environment struct {
	ID              string                         `json:"id"`
	StoreID         string                         `json:"store_id"`
	Name            string                         `json:"name"`
	SuiteID         *string                        `json:"suite_id,omitempty"`
	SuiteName       *string                        `json:"suite_name,omitempty"`
	Status          EnvironmentStatus              `json:"status"`
	Scenarios       map[string]EnvironmentScenario `json:"scenarios"`
	TimeTracking    TimeTracking                   `json:"time_tracking"`
	PresentUsersIDs []string                       `json:"present_users_ids"`
	Participants    []string                       `json:"participants"`
	ConcludedBy     *string                        `json:"concluded_by,omitempty"`
	Bugs            int                            `json:"bugs"`
	TotalCenarios   int                            `json:"totalCenarios"`
	CreatedAt       time.Time                      `json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

// ActivityLog 是追加式审计记录。
type ActivityLog struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	EntityID       string    `json:"entity_id"`
	EntityType     string    `json:"entity_type"`
	Action         string    `json:"action"`
	Message        string    `json:"message"`
	ActorID        *string   `json:"actor_id,omitempty"`
	ActorName      string    `json:"actor_name"`
	CreatedAt      time.Time `json:"created_at"`
}
