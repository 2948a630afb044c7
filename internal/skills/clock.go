package skills

import (
	"context"
	"time"
)

// ============================================================================
// CLOCK SKILLS
// ============================================================================

// TimeSkill answers getTime directives from the local clock. It never
// fails.
type TimeSkill struct {
	now func() time.Time
}

// NewTimeSkill creates the time connector.
func NewTimeSkill() *TimeSkill {
	return &TimeSkill{now: time.Now}
}

// Name returns the action type this connector serves.
func (s *TimeSkill) Name() string {
	return GetTime
}

// Invoke returns the current time.
func (s *TimeSkill) Invoke(_ context.Context, _ map[string]string) (*Result, error) {
	now := s.now()
	return &Result{
		Payload: map[string]interface{}{
			"isoTimestamp": now.Format(time.RFC3339),
			"spoken":       now.Format("3:04 PM"),
			"timezone":     now.Format("MST"),
		},
	}, nil
}

// DateSkill answers getDate directives from the local clock. It never
// fails.
type DateSkill struct {
	now func() time.Time
}

// NewDateSkill creates the date connector.
func NewDateSkill() *DateSkill {
	return &DateSkill{now: time.Now}
}

// Name returns the action type this connector serves.
func (s *DateSkill) Name() string {
	return GetDate
}

// Invoke returns the current date.
func (s *DateSkill) Invoke(_ context.Context, _ map[string]string) (*Result, error) {
	now := s.now()
	return &Result{
		Payload: map[string]interface{}{
			"isoDate": now.Format("2006-01-02"),
			"spoken":  now.Format("Monday, January 2, 2006"),
		},
	}, nil
}
