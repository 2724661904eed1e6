// Package schedule computes the four sale-stage milestones of a crowdsale.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSchedule = errors.New("schedule: milestones out of order")
	ErrNoPolicy        = errors.New("schedule: no policy for network")
	ErrNotAnchored     = errors.New("schedule: policy has a fixed start")
)

// Schedule holds unix timestamps for the sale milestones.
type Schedule struct {
	Start  int64 `json:"start"`
	Stage2 int64 `json:"stage2"`
	Stage3 int64 `json:"stage3"`
	End    int64 `json:"end"`
}

// Milestones returns the timestamps in order.
func (s Schedule) Milestones() [4]int64 {
	return [4]int64{s.Start, s.Stage2, s.Stage3, s.End}
}

var milestoneNames = [4]string{"start", "stage2", "stage3", "end"}

// Validate requires start < stage2 < stage3 < end.
func (s Schedule) Validate() error {
	m := s.Milestones()
	for i := 1; i < len(m); i++ {
		if m[i] <= m[i-1] {
			return &OrderError{
				Schedule: s,
				Earlier:  milestoneNames[i-1],
				Later:    milestoneNames[i],
			}
		}
	}
	return nil
}

// Times returns the milestones as UTC times.
func (s Schedule) Times() [4]time.Time {
	m := s.Milestones()
	var out [4]time.Time
	for i, ts := range m {
		out[i] = time.Unix(ts, 0).UTC()
	}
	return out
}

// OrderError describes the first pair of milestones that is not increasing.
type OrderError struct {
	Schedule Schedule
	Earlier  string
	Later    string
}

func (e *OrderError) Error() string {
	m := e.Schedule.Milestones()
	var earlier, later int64
	for i, name := range milestoneNames {
		if name == e.Earlier {
			earlier = m[i]
		}
		if name == e.Later {
			later = m[i]
		}
	}
	return fmt.Sprintf("%s: %s (%d, %s) must be after %s (%d, %s)",
		ErrInvalidSchedule.Error(),
		e.Later, later, time.Unix(later, 0).UTC().Format(time.RFC3339),
		e.Earlier, earlier, time.Unix(earlier, 0).UTC().Format(time.RFC3339),
	)
}

func (e *OrderError) Unwrap() error {
	return ErrInvalidSchedule
}
