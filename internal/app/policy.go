package app

import (
	"fmt"

	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a participant whose send buffer is full.
type Policy interface {
	OnBackPressure(code domain.MeetingCode, p core.Participant) BackpressureAction
}

// SimplePolicy applies one action to every slow participant.
type SimplePolicy struct {
	Action BackpressureAction
}

func (s SimplePolicy) OnBackPressure(domain.MeetingCode, core.Participant) BackpressureAction {
	return s.Action
}

// ParsePolicy maps the signal.slow_peer setting to a policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{Action: DropFrame}, nil
	case "kick":
		return SimplePolicy{Action: KickMember}, nil
	default:
		return nil, fmt.Errorf("app: unknown slow peer policy %q", name)
	}
}
