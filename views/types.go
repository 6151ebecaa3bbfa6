package views

import "github.com/eringen/alchemy/presets"

// ImageView is an image card on the dashboard.
type ImageView struct {
	ID          string
	URL         string
	Status      string
	Title       string
	Description string
	AltText     string
	Keywords    string
	Hashtags    string
	Board       string
	Link        string
	Error       string
	ExpiresIn   string
}

// DashboardData feeds the dashboard page.
type DashboardData struct {
	UserID    string
	Images    []ImageView
	TotalSize int64
	Quota     int64
	Presets   []presets.Group
	CSRFToken string
	Message   string
}

// UsedPercent is the share of the quota in use, capped at 100.
func (d DashboardData) UsedPercent() int {
	if d.Quota <= 0 {
		return 0
	}
	p := int(d.TotalSize * 100 / d.Quota)
	return min(p, 100)
}

// SchedulerData feeds the scheduler page.
type SchedulerData struct {
	Ready     int
	StartDate string
	CSRFToken string
}
