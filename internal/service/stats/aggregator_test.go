package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func apt(date, at string, typ model.AppointmentType, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{Name: date + at, Date: date, Time: at, Type: typ, Status: status}
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0, CompletionRate(nil))

	allDone := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, model.AppointmentStatusCompleted),
		apt("2024-06-10", "10:00", model.AppointmentTypeRegular, model.AppointmentStatusCompleted),
	}
	assert.Equal(t, 100, CompletionRate(allDone))

	mixed := append(allDone, apt("2024-06-10", "11:00", model.AppointmentTypeRegular, ""))
	assert.Equal(t, 67, CompletionRate(mixed))
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, Percentage(5, 0))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 13, Percentage(1, 8))
	assert.Equal(t, 33, Percentage(1, 3))
}

func TestCountByStatus(t *testing.T) {
	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "09:30", model.AppointmentTypeRegular, model.AppointmentStatusPending),
		apt("2024-06-10", "10:00", model.AppointmentTypeRegular, model.AppointmentStatusApproved),
		apt("2024-06-10", "11:00", model.AppointmentTypeRegular, model.AppointmentStatusRejected),
		apt("2024-06-10", "12:00", model.AppointmentTypeRegular, model.AppointmentStatusCancelled),
		apt("2024-06-10", "13:00", model.AppointmentTypeRegular, model.AppointmentStatusInProgress),
		apt("2024-06-10", "14:00", model.AppointmentTypeRegular, model.AppointmentStatusCompleted),
		apt("2024-06-10", "15:00", model.AppointmentTypeRegular, model.AppointmentStatusRescheduled),
		apt("2024-06-10", "16:00", model.AppointmentTypeRegular, "no-show"),
	}

	c := CountByStatus(records)
	assert.Equal(t, 9, c.Total)
	assert.Equal(t, 2, c.Pending)
	assert.Equal(t, 1, c.Approved)
	assert.Equal(t, 1, c.Rejected)
	assert.Equal(t, 1, c.Cancelled)
	assert.Equal(t, 1, c.InProgress)
	assert.Equal(t, 1, c.Completed)
	assert.Equal(t, 1, c.Rescheduled)
	assert.Equal(t, 1, c.Other)
	assert.Equal(t, c.Total, c.Pending+c.Approved+c.Rejected+c.Cancelled+c.InProgress+c.Completed+c.Rescheduled+c.Other)

	assert.Equal(t, model.StatusCounts{}, CountByStatus(nil))
}

func TestCountByType(t *testing.T) {
	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "10:00", model.AppointmentTypeUrgent, ""),
		apt("2024-06-10", "11:00", model.AppointmentTypeUrgent, ""),
		apt("2024-06-10", "12:00", model.AppointmentTypeFollowUp, ""),
	}
	assert.Equal(t, model.TypeCounts{Regular: 1, Urgent: 2, FollowUp: 1}, CountByType(records))
}

func TestPeakHour(t *testing.T) {
	hour, bookings := PeakHour(nil)
	assert.Equal(t, DefaultPeakHour, hour)
	assert.Equal(t, 0, bookings)
	assert.Equal(t, 0, PeakHourPercentage(nil))

	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "09:30", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "14:00", model.AppointmentTypeRegular, ""),
	}
	hour, bookings = PeakHour(records)
	assert.Equal(t, "09", hour)
	assert.Equal(t, 2, bookings)
	assert.Equal(t, 67, PeakHourPercentage(records))
}

func TestPeakHourTieGoesToLowestHour(t *testing.T) {
	records := []*model.Appointment{
		apt("2024-06-10", "15:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "8:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "11:00", model.AppointmentTypeRegular, ""),
	}
	for i := 0; i < 10; i++ {
		hour, bookings := PeakHour(records)
		assert.Equal(t, "8", hour)
		assert.Equal(t, 1, bookings)
	}
}

func TestDailyTrend(t *testing.T) {
	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeUrgent, model.AppointmentStatusCompleted),
		apt("2024-06-10", "10:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-11", "09:00", model.AppointmentTypeRegular, model.AppointmentStatusCompleted),
	}

	trends := DailyTrend(records)
	assert.Len(t, trends, 2)
	assert.Equal(t, model.DayTrend{Total: 2, Completed: 1, Urgent: 1}, trends["2024-06-10"])
	assert.Equal(t, model.DayTrend{Total: 1, Completed: 1}, trends["2024-06-11"])
}

func TestTimeSlots(t *testing.T) {
	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "09:45", model.AppointmentTypeRegular, ""),
		apt("2024-06-10", "", model.AppointmentTypeRegular, ""),
	}
	assert.Equal(t, map[string]int{"09": 2}, TimeSlots(records))
}

func TestWeeklyWindowCount(t *testing.T) {
	// Wednesday; the week runs from Sunday 10 March to Saturday 16 March.
	now := time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), WeekStart(now))

	records := []*model.Appointment{
		apt("2024-03-09", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-03-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-03-16", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-03-17", "09:00", model.AppointmentTypeRegular, ""),
		apt("someday", "09:00", model.AppointmentTypeRegular, ""),
	}
	assert.Equal(t, 2, WeeklyWindowCount(records, now))
}

func TestWeekStartOnSunday(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, sunday, WeekStart(sunday))
}

func TestTodayCount(t *testing.T) {
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-11", "09:00", model.AppointmentTypeRegular, ""),
	}
	assert.Equal(t, 1, TodayCount(records, now))
}

func TestChartSeries(t *testing.T) {
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)
	records := []*model.Appointment{
		apt("2024-06-10", "09:00", model.AppointmentTypeRegular, ""),
		apt("2024-06-12", "11:00", model.AppointmentTypeRegular, ""),
	}

	series := ChartSeries(records, 3, now)
	assert.Equal(t, []int{1, 0, 1}, series.Data)
	assert.Equal(t, []string{"Jun 10", "Jun 11", "Jun 12"}, series.Labels)

	empty := ChartSeries(nil, 0, now)
	assert.Empty(t, empty.Data)
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 50, CapacityUtilization(120, 30, 8))
	assert.Equal(t, 0, CapacityUtilization(10, 0, 8))
	assert.Equal(t, "Optimal", CapacityStatus(81))
	assert.Equal(t, "Needs Improvement", CapacityStatus(80))
}

func TestUniqueCustomers(t *testing.T) {
	records := []*model.Appointment{
		{Name: "Alice"}, {Name: "Bob"}, {Name: "Alice"},
	}
	assert.Equal(t, 2, UniqueCustomers(records))
}

func TestRecommendations(t *testing.T) {
	all := Recommendations(Signals{CompletionRate: 50, Urgent: 4, Regular: 10, PeakHourPercentage: 41})
	if assert.Len(t, all, 3) {
		assert.Equal(t, "Improve Appointment Completion Rate", all[0].Title)
		assert.Equal(t, model.PriorityHigh, all[0].Priority)
		assert.Equal(t, "Optimize Urgent Care Scheduling", all[1].Title)
		assert.Equal(t, model.PriorityMedium, all[1].Priority)
		assert.Equal(t, "Distribute Appointment Load", all[2].Title)
		assert.Equal(t, model.PriorityLow, all[2].Priority)
	}

	none := Recommendations(Signals{CompletionRate: 80, Urgent: 2, Regular: 10, PeakHourPercentage: 40})
	assert.Empty(t, none)
}

func TestGrowthPredictor(t *testing.T) {
	records := make([]*model.Appointment, 15)
	p := DefaultPredictor().Predict(records, 30)
	assert.Equal(t, model.DemandPrediction{NextPeriod: 17, TrendPercentage: 10, Confidence: 85}, p)
}
