package analytics

import "time"

// Trend directions shared by velocity, throughput and WIP statistics.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Risk levels for forecasts.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// BurndownPoint is one day of a sprint burndown series.
type BurndownPoint struct {
	Date            time.Time `json:"date"`
	RemainingWork   float64   `json:"remainingWork"`
	IdealRemaining  float64   `json:"idealRemaining"`
	ActualCompleted float64   `json:"actualCompleted"`
	IdealCompleted  float64   `json:"idealCompleted"`
}

// CFDPoint is one day of a cumulative flow series.
type CFDPoint struct {
	Date       time.Time `json:"date"`
	Todo       int       `json:"todo"`
	InProgress int       `json:"inProgress"`
	Done       int       `json:"done"`
	Total      int       `json:"total"`
}

// CFDMetrics are the signals derived from a cumulative flow series.
type CFDMetrics struct {
	AvgCycleTimeDays     float64 `json:"avgCycleTimeDays"`
	AvgThroughputPerWeek float64 `json:"avgThroughputPerWeek"`
	BottleneckStatus     string  `json:"bottleneckStatus,omitempty"`
	WIPTrend             string  `json:"wipTrend"`
}

// CumulativeFlow bundles a CFD series with its derived metrics.
type CumulativeFlow struct {
	ProjectID string     `json:"projectId"`
	Series    []CFDPoint `json:"series"`
	Metrics   CFDMetrics `json:"metrics"`
}

// VelocityRecord summarizes one sprint's planned versus delivered work.
type VelocityRecord struct {
	SprintID        string    `json:"sprintId"`
	SprintName      string    `json:"sprintName,omitempty"`
	Status          string    `json:"status"`
	StartDate       time.Time `json:"startDate,omitzero"`
	EndDate         time.Time `json:"endDate,omitzero"`
	PlannedPoints   float64   `json:"plannedPoints"`
	CompletedPoints float64   `json:"completedPoints"`
	IssuesPlanned   int       `json:"issuesPlanned"`
	IssuesCompleted int       `json:"issuesCompleted"`
	CompletionRate  float64   `json:"completionRate"`
}

// Velocity of a sprint is its completed points.
func (r VelocityRecord) Velocity() float64 { return r.CompletedPoints }

// ConfidenceInterval is a two-sided 95% interval.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// VelocityTrends carries rolling averages and trend statistics over a
// project's velocity sequence.
type VelocityTrends struct {
	ProjectID          string             `json:"projectId"`
	SprintsAnalyzed    int                `json:"sprintsAnalyzed"`
	AverageVelocity    float64            `json:"averageVelocity"`
	Rolling3           float64            `json:"rolling3"`
	Rolling6           float64            `json:"rolling6"`
	Rolling12          float64            `json:"rolling12"`
	TrendDirection     string             `json:"trendDirection"`
	TrendPercentage    float64            `json:"trendPercentage"`
	StandardDeviation  float64            `json:"standardDeviation"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
}

// ForecastResult is a velocity projection with confidence and risk.
type ForecastResult struct {
	ProjectID            string     `json:"projectId"`
	ProjectedVelocity    float64    `json:"projectedVelocity"`
	ConfidenceLevel      float64    `json:"confidenceLevel"`
	RiskAssessment       string     `json:"riskAssessment"`
	Recommendations      []string   `json:"recommendations"`
	SprintsNeeded        int        `json:"sprintsNeeded,omitempty"`
	EstimatedReleaseDate *time.Time `json:"estimatedReleaseDate,omitempty"`
	TargetDate           *time.Time `json:"targetDate,omitempty"`
	OnTrackForTarget     *bool      `json:"onTrackForTarget,omitempty"`
}

// CycleTimeMetrics aggregates per-issue cycle times over recent sprints.
type CycleTimeMetrics struct {
	ProjectID  string             `json:"projectId"`
	IssueCount int                `json:"issueCount"`
	AvgDays    float64            `json:"avgDays"`
	MedianDays float64            `json:"medianDays"`
	ByType     map[string]float64 `json:"byType"`
	ByPriority map[string]float64 `json:"byPriority"`
	Trend      string             `json:"trend"`
}

// ThroughputMetrics reports delivery rate per sprint.
type ThroughputMetrics struct {
	ProjectID       string  `json:"projectId"`
	IssuesPerSprint float64 `json:"issuesPerSprint"`
	PointsPerSprint float64 `json:"pointsPerSprint"`
	Trend           string  `json:"trend"`
}

// SprintScope is the reconstructed scope summary of a single sprint.
type SprintScope struct {
	SprintID        string  `json:"sprintId"`
	TotalScope      float64 `json:"totalScope"`
	CompletedWork   float64 `json:"completedWork"`
	RemainingWork   float64 `json:"remainingWork"`
	CompletionRate  float64 `json:"completionRate"`
	TotalIssues     int     `json:"totalIssues"`
	CompletedIssues int     `json:"completedIssues"`
	RemainingIssues int     `json:"remainingIssues"`
}

// SprintHealth is a coarse health summary of a sprint. BlockedIssues,
// ScopeCreep and QualityScore are best-effort until the workflow records
// blocking, membership history and defect links.
type SprintHealth struct {
	SprintID            string  `json:"sprintId"`
	Status              string  `json:"status"`
	CompletionRate      float64 `json:"completionRate"`
	AverageIssueAgeDays float64 `json:"averageIssueAgeDays"`
	BlockedIssues       int     `json:"blockedIssues"`
	ScopeCreep          float64 `json:"scopeCreep"`
	QualityScore        float64 `json:"qualityScore"`
}

// TeamMemberVelocity attributes completed work to one assignee.
type TeamMemberVelocity struct {
	AssigneeID             string  `json:"assigneeId"`
	TotalPoints            float64 `json:"totalPoints"`
	TaskCount              int     `json:"taskCount"`
	AvgTaskSize            float64 `json:"avgTaskSize"`
	ConsistencyScore       float64 `json:"consistencyScore"`
	ContributionPercentage float64 `json:"contributionPercentage"`
}

// Dashboard aggregates the independent project analytics in one response.
type Dashboard struct {
	ProjectID      string               `json:"projectId"`
	VelocityTrends *VelocityTrends      `json:"velocityTrends"`
	Forecast       *ForecastResult      `json:"velocityForecast"`
	TeamComparison []TeamMemberVelocity `json:"teamComparison"`
	CycleTime      *CycleTimeMetrics    `json:"cycleTimeMetrics"`
	Throughput     *ThroughputMetrics   `json:"throughputMetrics"`
	LastUpdated    time.Time            `json:"lastUpdated"`
}
