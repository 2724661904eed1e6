package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Kind selects how a policy derives milestones.
type Kind string

const (
	// KindRelative places the start a short delay after now and spaces the
	// remaining stages by a fixed step.
	KindRelative Kind = "relative"
	// KindAbsolute uses fixed calendar timestamps.
	KindAbsolute Kind = "absolute"
	// KindMixed takes a relative start and absolute later stages.
	KindMixed Kind = "mixed"
)

// Calendar2018 is the public sale calendar: 2018-10-01, 2018-10-16,
// 2018-11-20 and 2019-01-01, all 00:00 UTC.
var Calendar2018 = Schedule{
	Start:  1538352000,
	Stage2: 1539648000,
	Stage3: 1542672000,
	End:    1546300800,
}

// Policy is a tagged variant over the three kinds.
type Policy struct {
	Kind  Kind
	Delay time.Duration
	Step  time.Duration
	Fixed Schedule
}

// Relative returns a relative policy.
func Relative(delay, step time.Duration) Policy {
	return Policy{Kind: KindRelative, Delay: delay, Step: step}
}

// Absolute returns a fixed calendar policy.
func Absolute(s Schedule) Policy {
	return Policy{Kind: KindAbsolute, Fixed: s}
}

// Mixed returns a policy with a relative start and the fixed later stages of s.
func Mixed(delay time.Duration, s Schedule) Policy {
	return Policy{Kind: KindMixed, Delay: delay, Fixed: s}
}

// Anchored reports whether the start depends on the anchor time.
func (p Policy) Anchored() bool {
	return p.Kind == KindRelative || p.Kind == KindMixed
}

// Compute derives milestones from anchor without validating them.
func (p Policy) Compute(anchor time.Time) Schedule {
	start := anchor.Unix() + int64(p.Delay/time.Second)

	switch p.Kind {
	case KindRelative:
		step := int64(p.Step / time.Second)
		return Schedule{
			Start:  start,
			Stage2: start + step,
			Stage3: start + 2*step,
			End:    start + 3*step,
		}
	case KindMixed:
		s := p.Fixed
		s.Start = start
		return s
	default:
		return p.Fixed
	}
}

// Calculate computes and validates the schedule.
func (p Policy) Calculate(anchor time.Time) (Schedule, error) {
	s := p.Compute(anchor)
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

func (p Policy) String() string {
	switch p.Kind {
	case KindRelative:
		return fmt.Sprintf("relative(now+%s, step %s)", p.Delay, p.Step)
	case KindMixed:
		return fmt.Sprintf("mixed(now+%s, fixed %d/%d/%d)", p.Delay, p.Fixed.Stage2, p.Fixed.Stage3, p.Fixed.End)
	default:
		return fmt.Sprintf("absolute(%d/%d/%d/%d)", p.Fixed.Start, p.Fixed.Stage2, p.Fixed.Stage3, p.Fixed.End)
	}
}

// Table maps network names to policies. Default applies to any network not
// listed when set.
type Table struct {
	Default  *Policy
	Networks map[string]Policy
}

// For returns the policy for network.
func (t Table) For(network string) (Policy, error) {
	if p, ok := t.Networks[network]; ok {
		return p, nil
	}
	if t.Default != nil {
		return *t.Default, nil
	}
	known := make([]string, 0, len(t.Networks))
	for name := range t.Networks {
		known = append(known, name)
	}
	sort.Strings(known)
	return Policy{}, fmt.Errorf("%w: %q (known: %v)", ErrNoPolicy, network, known)
}

// Calculate resolves the network's policy and computes a validated schedule
// anchored at now.
func (t Table) Calculate(network string, now time.Time) (Schedule, error) {
	p, err := t.For(network)
	if err != nil {
		return Schedule{}, err
	}
	return p.Calculate(now)
}

// StartingAt computes the schedule with the start pinned to start instead of
// now plus the delay. Only anchored policies can be moved.
func (p Policy) StartingAt(start time.Time) (Schedule, error) {
	if !p.Anchored() {
		return Schedule{}, fmt.Errorf("%w: %s", ErrNotAnchored, p)
	}
	p.Delay = 0
	return p.Calculate(start)
}
