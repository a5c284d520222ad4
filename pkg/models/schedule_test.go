package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, 2026-03-11 10:00 UTC.
var scheduleNow = time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)

func TestCalculateNext_DailyLaterToday(t *testing.T) {
	s := &Schedule{Type: ScheduleDaily, Time: "14:30"}

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 11, 14, 30, 0, 0, time.UTC), *next)
}

func TestCalculateNext_DailyTimePassedRollsToTomorrow(t *testing.T) {
	s := &Schedule{Type: ScheduleDaily, Time: "09:00"}

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_DailyExactlyNowRollsToTomorrow(t *testing.T) {
	s := &Schedule{Type: ScheduleDaily, Time: "10:00"}

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 12, 10, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_WeeklySameDayLaterTime(t *testing.T) {
	s := &Schedule{Type: ScheduleWeekly, DayOfWeek: 3, Time: "18:00"} // Wednesday

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 11, 18, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_WeeklySameDayPassedTime(t *testing.T) {
	s := &Schedule{Type: ScheduleWeekly, DayOfWeek: 3, Time: "08:00"}

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 18, 8, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_WeeklyEarlierWeekday(t *testing.T) {
	s := &Schedule{Type: ScheduleWeekly, DayOfWeek: 1, Time: "08:00"} // Monday

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 16, 8, 0, 0, 0, time.UTC), *next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestCalculateNext_MonthlyUpcomingDay(t *testing.T) {
	s := &Schedule{Type: ScheduleMonthly, DayOfMonth: 15, Time: "09:00"}

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_MonthlyDay31SkipsShortMonths(t *testing.T) {
	s := &Schedule{Type: ScheduleMonthly, DayOfMonth: 31, Time: "09:00"}

	// April has 30 days; the next day-31 slot after March 31 is May 31.
	next := s.CalculateNext(time.Date(2026, time.March, 31, 10, 0, 0, 0, time.UTC))

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.May, 31, 9, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_MonthlyDay29SkipsNonLeapFebruary(t *testing.T) {
	s := &Schedule{Type: ScheduleMonthly, DayOfMonth: 29, Time: "09:00"}

	next := s.CalculateNext(time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 29, 9, 0, 0, 0, time.UTC), *next)
}

func TestCalculateNext_Cron(t *testing.T) {
	s := &Schedule{Type: ScheduleCron, CronExpression: "0 9 * * 1"}

	next := s.CalculateNext(scheduleNow)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC), *next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestCalculateNext_InvalidInputsReturnNil(t *testing.T) {
	assert.Nil(t, (&Schedule{Type: ScheduleDaily, Time: "25:00"}).CalculateNext(scheduleNow))
	assert.Nil(t, (&Schedule{Type: ScheduleWeekly, DayOfWeek: 9, Time: "09:00"}).CalculateNext(scheduleNow))
	assert.Nil(t, (&Schedule{Type: ScheduleCron, CronExpression: "not a cron"}).CalculateNext(scheduleNow))
	assert.Nil(t, (&Schedule{Type: "hourly"}).CalculateNext(scheduleNow))
}

func TestScheduleValidate(t *testing.T) {
	assert.NoError(t, (&Schedule{Type: ScheduleDaily, Time: "09:00"}).Validate())
	assert.NoError(t, (&Schedule{Type: ScheduleWeekly, DayOfWeek: 0, Time: "09:00"}).Validate())
	assert.NoError(t, (&Schedule{Type: ScheduleMonthly, DayOfMonth: 31, Time: "09:00"}).Validate())
	assert.NoError(t, (&Schedule{Type: ScheduleCron, CronExpression: "*/5 * * * *"}).Validate())

	assert.ErrorIs(t, (&Schedule{Type: ScheduleDaily, Time: "9am"}).Validate(), ErrInvalidScheduleTime)
	assert.ErrorIs(t, (&Schedule{Type: ScheduleWeekly, DayOfWeek: 7, Time: "09:00"}).Validate(), ErrInvalidDayOfWeek)
	assert.ErrorIs(t, (&Schedule{Type: ScheduleMonthly, DayOfMonth: 0, Time: "09:00"}).Validate(), ErrInvalidDayOfMonth)
	assert.ErrorIs(t, (&Schedule{Type: ScheduleCron, CronExpression: "bad"}).Validate(), ErrInvalidCron)
	assert.ErrorIs(t, (&Schedule{Type: "hourly"}).Validate(), ErrInvalidScheduleType)
}
