package stats

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
)

const (
	// DefaultPeakHour is reported when there are no records to rank.
	DefaultPeakHour = "09"

	dateLayout       = "2006-01-02"
	chartLabelLayout = "Jan 2"
)

// Percentage returns part/total as a whole percentage rounded half-up.
func Percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(total)*100 + 0.5))
}

func CountByStatus(records []*model.Appointment) model.StatusCounts {
	var c model.StatusCounts
	for _, apt := range records {
		switch apt.Status.Normalize() {
		case model.AppointmentStatusPending:
			c.Pending++
		case model.AppointmentStatusApproved:
			c.Approved++
		case model.AppointmentStatusRescheduled:
			c.Rescheduled++
		case model.AppointmentStatusInProgress:
			c.InProgress++
		case model.AppointmentStatusCompleted:
			c.Completed++
		case model.AppointmentStatusCancelled:
			c.Cancelled++
		case model.AppointmentStatusRejected:
			c.Rejected++
		default:
			c.Other++
		}
	}
	c.Total = c.Pending + c.Approved + c.Rescheduled + c.InProgress +
		c.Completed + c.Cancelled + c.Rejected + c.Other
	return c
}

func CountByType(records []*model.Appointment) model.TypeCounts {
	var c model.TypeCounts
	for _, apt := range records {
		switch apt.Type {
		case model.AppointmentTypeRegular:
			c.Regular++
		case model.AppointmentTypeUrgent:
			c.Urgent++
		case model.AppointmentTypeFollowUp:
			c.FollowUp++
		}
	}
	return c
}

func CompletionRate(records []*model.Appointment) int {
	completed := 0
	for _, apt := range records {
		if apt.Status == model.AppointmentStatusCompleted {
			completed++
		}
	}
	return Percentage(completed, len(records))
}

// TodayCount counts records booked for now's calendar date.
func TodayCount(records []*model.Appointment, now time.Time) int {
	today := now.Format(dateLayout)
	n := 0
	for _, apt := range records {
		if apt.Date == today {
			n++
		}
	}
	return n
}

// WeekStart returns midnight of the Sunday starting now's week, in now's location.
func WeekStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

// WeeklyWindowCount counts records dated within [WeekStart(now), WeekStart(now)+7d).
// Records with an unparseable date are skipped.
func WeeklyWindowCount(records []*model.Appointment, now time.Time) int {
	start := WeekStart(now)
	end := start.AddDate(0, 0, 7)
	n := 0
	for _, apt := range records {
		day, err := time.ParseInLocation(dateLayout, apt.Date, now.Location())
		if err != nil {
			continue
		}
		if !day.Before(start) && day.Before(end) {
			n++
		}
	}
	return n
}

func DailyTrend(records []*model.Appointment) map[string]model.DayTrend {
	trends := make(map[string]model.DayTrend)
	for _, apt := range records {
		t := trends[apt.Date]
		t.Total++
		if apt.Status == model.AppointmentStatusCompleted {
			t.Completed++
		}
		if apt.Type == model.AppointmentTypeUrgent {
			t.Urgent++
		}
		trends[apt.Date] = t
	}
	return trends
}

// TimeSlots counts records per hour, taking the hour as everything before
// the first colon of the time string.
func TimeSlots(records []*model.Appointment) map[string]int {
	slots := make(map[string]int)
	for _, apt := range records {
		hour, _, _ := strings.Cut(strings.TrimSpace(apt.Time), ":")
		if hour == "" {
			continue
		}
		slots[hour]++
	}
	return slots
}

// PeakHour returns the busiest hour and its booking count. Ties go to the
// numerically lowest hour.
func PeakHour(records []*model.Appointment) (string, int) {
	peak, bookings := "", 0
	for hour, count := range TimeSlots(records) {
		if count > bookings || (count == bookings && hourLess(hour, peak)) {
			peak, bookings = hour, count
		}
	}
	if peak == "" {
		return DefaultPeakHour, 0
	}
	return peak, bookings
}

func PeakHourPercentage(records []*model.Appointment) int {
	_, bookings := PeakHour(records)
	return Percentage(bookings, len(records))
}

func hourLess(a, b string) bool {
	if b == "" {
		return true
	}
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil && ai != bi:
		return ai < bi
	case aerr == nil && berr != nil:
		return true
	case aerr != nil && berr == nil:
		return false
	}
	return a < b
}

func UniqueCustomers(records []*model.Appointment) int {
	seen := make(map[string]struct{}, len(records))
	for _, apt := range records {
		seen[apt.Name] = struct{}{}
	}
	return len(seen)
}

// CapacityUtilization is the share of available slots booked over the window.
func CapacityUtilization(total, windowDays, slotsPerDay int) int {
	return Percentage(total, windowDays*slotsPerDay)
}

func CapacityStatus(completionRate int) string {
	if completionRate > 80 {
		return "Optimal"
	}
	return "Needs Improvement"
}

// Signals are the figures the recommendation rules look at.
type Signals struct {
	CompletionRate     int
	Urgent             int
	Regular            int
	PeakHourPercentage int
}

func Recommendations(s Signals) []model.Recommendation {
	recs := make([]model.Recommendation, 0, 3)
	if s.CompletionRate < 80 {
		recs = append(recs, model.Recommendation{
			Title:       "Improve Appointment Completion Rate",
			Description: "Consider implementing reminder systems and follow-up procedures to increase completion rates.",
			Priority:    model.PriorityHigh,
			Impact:      "High - Could improve patient satisfaction and clinic efficiency",
		})
	}
	if float64(s.Urgent) > 0.3*float64(s.Regular) {
		recs = append(recs, model.Recommendation{
			Title:       "Optimize Urgent Care Scheduling",
			Description: "High volume of urgent appointments suggests need for dedicated urgent care slots.",
			Priority:    model.PriorityMedium,
			Impact:      "Medium - Could reduce wait times and improve patient flow",
		})
	}
	if s.PeakHourPercentage > 40 {
		recs = append(recs, model.Recommendation{
			Title:       "Distribute Appointment Load",
			Description: "Consider offering incentives for off-peak appointments to balance daily schedule.",
			Priority:    model.PriorityLow,
			Impact:      "Low - Could improve staff workload distribution",
		})
	}
	return recs
}

// StartCollectingRecommendation replaces the rule list when no data could be read.
var StartCollectingRecommendation = model.Recommendation{
	Title:       "Start Collecting More Data",
	Description: "Begin tracking appointments to generate meaningful insights.",
	Priority:    model.PriorityHigh,
	Impact:      "High - Foundation for all future analytics",
}

// ChartSeries counts records per day for the windowDays days ending today,
// oldest first, with empty days reported as zero.
func ChartSeries(records []*model.Appointment, windowDays int, now time.Time) model.ChartSeries {
	if windowDays < 0 {
		windowDays = 0
	}
	perDay := make(map[string]int, len(records))
	for _, apt := range records {
		perDay[apt.Date]++
	}

	series := model.ChartSeries{
		Labels: make([]string, 0, windowDays),
		Data:   make([]int, 0, windowDays),
	}
	y, m, d := now.Date()
	for i := windowDays - 1; i >= 0; i-- {
		day := time.Date(y, m, d-i, 0, 0, 0, 0, now.Location())
		series.Labels = append(series.Labels, day.Format(chartLabelLayout))
		series.Data = append(series.Data, perDay[day.Format(dateLayout)])
	}
	return series
}
