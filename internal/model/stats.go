package model

import "time"

// StatusCounts buckets appointments by status. Total is the sum of every bucket.
type StatusCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Approved    int `json:"approved"`
	Rescheduled int `json:"rescheduled"`
	InProgress  int `json:"in_progress"`
	Completed   int `json:"completed"`
	Cancelled   int `json:"cancelled"`
	Rejected    int `json:"rejected"`
	Other       int `json:"other"`
}

type TypeCounts struct {
	Regular  int `json:"regular"`
	Urgent   int `json:"urgent"`
	FollowUp int `json:"follow"`
}

type DayTrend struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Urgent    int `json:"urgent"`
}

type StatsScope struct {
	Date string `form:"date"`
	Days int    `form:"days"`
}

type StatsSnapshot struct {
	Scope          StatsScope          `json:"scope"`
	Counts         StatusCounts        `json:"counts"`
	ByType         TypeCounts          `json:"by_type"`
	CompletionRate int                 `json:"completion_rate"`
	Today          int                 `json:"today"`
	ThisWeek       int                 `json:"this_week"`
	WeeklyGoal     int                 `json:"weekly_goal"`
	DailyTrends    map[string]DayTrend `json:"daily_trends"`
	TimeSlots      map[string]int      `json:"time_slots"`
	PeakHour       string              `json:"peak_hour"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Degraded       bool                `json:"degraded"`
}

type DemandPrediction struct {
	NextPeriod      int `json:"next_period"`
	TrendPercentage int `json:"trend_percentage"`
	Confidence      int `json:"confidence"`
}

type CapacityInsight struct {
	Utilization int    `json:"utilization"`
	Status      string `json:"status"`
}

type PeakHoursInsight struct {
	PeakHour   string `json:"peak_hour"`
	Bookings   int    `json:"bookings"`
	Percentage int    `json:"percentage"`
}

type CustomerInsight struct {
	UniqueCustomers int `json:"unique_customers"`
}

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

type Recommendation struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    RecommendationPriority `json:"priority"`
	Impact      string                 `json:"impact"`
}

type ChartSeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

type InsightsSummary struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Urgent         int `json:"urgent"`
	Regular        int `json:"regular"`
	CompletionRate int `json:"completion_rate"`
}

type InsightsSnapshot struct {
	WindowDays       int              `json:"window_days"`
	DemandPrediction DemandPrediction `json:"demand_prediction"`
	Capacity         CapacityInsight  `json:"capacity"`
	PeakHours        PeakHoursInsight `json:"peak_hours"`
	Customers        CustomerInsight  `json:"customer_behavior"`
	Recommendations  []Recommendation `json:"recommendations"`
	Chart            ChartSeries      `json:"chart"`
	Summary          InsightsSummary  `json:"summary"`
	GeneratedAt      time.Time        `json:"generated_at"`
	Degraded         bool             `json:"degraded"`
}

type ReportRequest struct {
	ReportType string `json:"report_type" validate:"required"`
	DateRange  int    `json:"date_range" validate:"omitempty,min=1,max=365"`
}

type Report struct {
	ID          string           `json:"id"`
	ReportType  string           `json:"report_type"`
	GeneratedBy string           `json:"generated_by"`
	GeneratedAt time.Time        `json:"generated_at"`
	Insights    InsightsSnapshot `json:"insights"`
}
