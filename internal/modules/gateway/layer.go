package gateway

import (
	"context"
	"sync"
)

// ChannelLayer is the pub/sub primitive mediating group membership and
// fan-out. A message sent to group G reaches every member joined to G at
// send time; members who join after the send receive nothing. Injected so
// the channel and publisher can be tested against an in-memory fake.
type ChannelLayer interface {
	GroupAdd(group string, member chan<- Envelope)
	GroupDiscard(group string, member chan<- Envelope)
	GroupSend(ctx context.Context, group string, env Envelope) error
}

// LocalLayer is the in-process ChannelLayer: group membership held in maps,
// delivery via non-blocking channel sends.
type LocalLayer struct {
	mu     sync.RWMutex
	groups map[string]map[chan<- Envelope]struct{}
}

// NewLocalLayer creates an empty in-process channel layer.
func NewLocalLayer() *LocalLayer {
	return &LocalLayer{
		groups: make(map[string]map[chan<- Envelope]struct{}),
	}
}

// GroupAdd joins member to group, creating the group on first join.
// Adding an existing member is a no-op.
func (l *LocalLayer) GroupAdd(group string, member chan<- Envelope) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.groups[group] == nil {
		l.groups[group] = make(map[chan<- Envelope]struct{})
	}
	l.groups[group][member] = struct{}{}
}

// GroupDiscard removes member from group, dropping the group when it
// becomes empty. Discarding an absent member is a no-op, so cleanup paths
// may call it any number of times.
func (l *LocalLayer) GroupDiscard(group string, member chan<- Envelope) {
	l.mu.Lock()
	defer l.mu.Unlock()

	members := l.groups[group]
	if members == nil {
		return
	}
	delete(members, member)
	if len(members) == 0 {
		delete(l.groups, group)
	}
}

// GroupSend delivers env to every current member of group. Slow consumers
// with a full buffer are skipped rather than blocking the sender.
func (l *LocalLayer) GroupSend(ctx context.Context, group string, env Envelope) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for member := range l.groups[group] {
		select {
		case member <- env:
		default:
			// drop for this member; best-effort delivery
		}
	}
	return nil
}

// MemberCount returns the current membership size of group.
func (l *LocalLayer) MemberCount(group string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.groups[group])
}
