package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleType selects how the next run of a scheduled workflow is computed.
type ScheduleType string

const (
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
	ScheduleCron    ScheduleType = "cron"
)

var (
	ErrInvalidScheduleType = errors.New("invalid schedule type")
	ErrInvalidScheduleTime = errors.New("schedule time must be HH:MM")
	ErrInvalidDayOfWeek    = errors.New("schedule day_of_week must be 0..6")
	ErrInvalidDayOfMonth   = errors.New("schedule day_of_month must be 1..31")
	ErrInvalidCron         = errors.New("invalid cron expression")
)

// Schedule describes when a schedule-type workflow fires. Only the fields
// relevant to Type are read. NextRun is precomputed on save so the scheduler
// can scan for due workflows with a single query.
type Schedule struct {
	Type           ScheduleType `json:"type"`
	Time           string       `json:"time,omitempty"` // "HH:MM"
	DayOfWeek      int          `json:"day_of_week,omitempty"`
	DayOfMonth     int          `json:"day_of_month,omitempty"`
	CronExpression string       `json:"cron_expression,omitempty"`
	NextRun        *time.Time   `json:"next_run,omitempty"`
}

// cronParser accepts the standard 5-field cron format.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the fields relevant to Type.
func (s *Schedule) Validate() error {
	switch s.Type {
	case ScheduleDaily:
		_, _, err := parseClock(s.Time)

		return err
	case ScheduleWeekly:
		if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
			return ErrInvalidDayOfWeek
		}

		_, _, err := parseClock(s.Time)

		return err
	case ScheduleMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return ErrInvalidDayOfMonth
		}

		_, _, err := parseClock(s.Time)

		return err
	case ScheduleCron:
		if _, err := cronParser.Parse(s.CronExpression); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidCron, s.CronExpression, err)
		}

		return nil
	default:
		return ErrInvalidScheduleType
	}
}

// CalculateNext returns the next firing time strictly after now, in now's
// location (the store's local time). It returns nil for an invalid schedule,
// which the scheduler treats as "never due".
func (s *Schedule) CalculateNext(now time.Time) *time.Time {
	switch s.Type {
	case ScheduleDaily:
		hour, minute, err := parseClock(s.Time)
		if err != nil {
			return nil
		}

		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		return &next

	case ScheduleWeekly:
		hour, minute, err := parseClock(s.Time)
		if err != nil || s.DayOfWeek < 0 || s.DayOfWeek > 6 {
			return nil
		}

		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

		days := (s.DayOfWeek - int(now.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, days)

		// Target weekday is today but the time already passed.
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}

		return &next

	case ScheduleMonthly:
		hour, minute, err := parseClock(s.Time)
		if err != nil || s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return nil
		}

		year, month := now.Year(), now.Month()

		for range 13 {
			if s.DayOfMonth <= daysIn(year, month) {
				next := time.Date(year, month, s.DayOfMonth, hour, minute, 0, 0, now.Location())
				if next.After(now) {
					return &next
				}
			}

			// Current month is too short or the slot already passed; roll on.
			month++
			if month > time.December {
				month = time.January
				year++
			}
		}

		return nil

	case ScheduleCron:
		cronSchedule, err := cronParser.Parse(s.CronExpression)
		if err != nil {
			return nil
		}

		next := cronSchedule.Next(now)
		if next.IsZero() {
			return nil
		}

		return &next

	default:
		return nil
	}
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, ErrInvalidScheduleTime
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidScheduleTime
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidScheduleTime
	}

	return hour, minute, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
