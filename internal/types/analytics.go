package types

// LeaderboardEntry summarises one assignee's workload.
type LeaderboardEntry struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// TaskAnalytics is the aggregated response for GET /api/analytics/tasks.
// UserLeaderboard is only populated for Admin and Manager callers; for the
// User role the field is omitted entirely.
type TaskAnalytics struct {
	TotalTasks      int                          `json:"totalTasks"`
	TasksByStatus   map[string]int               `json:"tasksByStatus"`
	TasksByPriority map[string]int               `json:"tasksByPriority"`
	OverdueTasks    int                          `json:"overdueTasks"`
	TasksDueSoon    int                          `json:"tasksDueSoon"`
	UserLeaderboard map[string]*LeaderboardEntry `json:"userLeaderboard,omitempty"`
}
