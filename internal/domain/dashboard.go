package domain

import "time"

// ============================================================
// Dashboard rollups
// ============================================================

// Funnel counts prospects by the furthest stage they reached, so every
// stage is contained in the previous one.
type Funnel struct {
	Registered     int `json:"registered"`
	Visited        int `json:"visited"`
	Quoted         int `json:"quoted"`
	ClosedImminent int `json:"closed_imminent"`
}

// TemperatureBucket is one bar of the temperature distribution.
type TemperatureBucket struct {
	Temperature Temperature `json:"temperature"`
	Count       int         `json:"count"`
}

// TeamSummary is the per-team row of the dashboard.
type TeamSummary struct {
	TeamID        string `json:"team_id"`
	TeamName      string `json:"team_name"`
	AdvisorCount  int    `json:"advisor_count"`
	ProspectCount int    `json:"prospect_count"`
	HotCount      int    `json:"hot_count"`
	ConversionPct int    `json:"conversion_pct"`
}

// ActivityCounts partitions activities by classification.
type ActivityCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Overdue     int `json:"overdue"`
	Completed   int `json:"completed"`
	Rescheduled int `json:"rescheduled"`
}

// Add counts one activity of class c.
func (c *ActivityCounts) Add(class ActivityClass) {
	c.Total++
	switch class {
	case ClassPending:
		c.Pending++
	case ClassOverdue:
		c.Overdue++
	case ClassCompleted:
		c.Completed++
	case ClassRescheduled:
		c.Rescheduled++
	}
}

// TodayActivities are the counts for activities dated today.
type TodayActivities struct {
	Date string `json:"date"`
	ActivityCounts
}

// InventoryCount is the number of units in one status.
type InventoryCount struct {
	Status PropertyStatus `json:"status"`
	Count  int            `json:"count"`
}

// Dashboard is the full scoped rollup.
type Dashboard struct {
	GeneratedAt        time.Time           `json:"generated_at"`
	Scope              string              `json:"scope"`
	Funnel             Funnel              `json:"funnel"`
	Temperatures       []TemperatureBucket `json:"temperatures"`
	Teams              []TeamSummary       `json:"teams"`
	Today              TodayActivities     `json:"today"`
	Inventory          []InventoryCount    `json:"inventory"`
	AverageDiscountPct float64             `json:"average_discount_pct"`
}

// ActivitySummary totals the scoped activities and reports stale prospects.
type ActivitySummary struct {
	ActivityCounts
	StaleProspects int `json:"stale_prospects"`
	StaleDays      int `json:"stale_days"`
}
