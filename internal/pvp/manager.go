package pvp

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
)

var (
	ErrInvalidArgs      = errors.New("invalid arguments")
	ErrSelfChallenge    = errors.New("cannot challenge yourself")
	ErrAlreadyPending   = errors.New("target already has a pending challenge")
	ErrNoPendingForUser = errors.New("no pending challenge for target user")
)

type Manager struct {
	mu sync.RWMutex
	// targetID -> list of challenges (append-only; last is latest)
	byTarget map[string][]*Challenge
	seq      uint64
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{byTarget: make(map[string][]*Challenge), now: time.Now}
}

// CreateChallenge records a challenge. Challenges are auto-accepted in the
// origin room.
func (m *Manager) CreateChallenge(originRoom, challengerID, targetID string, side SideChoice, variant flipello.Variant) (*Challenge, error) {
	if originRoom == "" || challengerID == "" || targetID == "" {
		return nil, ErrInvalidArgs
	}
	if challengerID == targetID {
		return nil, ErrSelfChallenge
	}
	if variant == "" {
		variant = flipello.VariantFlipello
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.byTarget[targetID]
	if idx := latestPendingIndex(list); idx >= 0 {
		return nil, ErrAlreadyPending
	}
	ch := &Challenge{
		ID:           m.nextID(),
		OriginRoom:   originRoom,
		ResolveRoom:  originRoom,
		ChallengerID: challengerID,
		TargetID:     targetID,
		Side:         side,
		Variant:      variant,
		CreatedAt:    m.now(),
		Status:       StatusAccepted,
	}
	m.byTarget[targetID] = append(list, ch)
	return ch, nil
}

// OpenChallenge records a challenge that waits for the target to answer.
func (m *Manager) OpenChallenge(originRoom, challengerID, targetID string, side SideChoice, variant flipello.Variant) (*Challenge, error) {
	ch, err := m.CreateChallenge(originRoom, challengerID, targetID, side, variant)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	ch.Status = StatusPending
	ch.ResolveRoom = ""
	m.mu.Unlock()
	return ch, nil
}

func (m *Manager) Accept(targetID, acceptRoom string) (*Challenge, error) {
	return m.resolve(targetID, acceptRoom, StatusAccepted)
}

func (m *Manager) Decline(targetID, declineRoom string) (*Challenge, error) {
	return m.resolve(targetID, declineRoom, StatusDeclined)
}

func (m *Manager) resolve(targetID, room string, status Status) (*Challenge, error) {
	if targetID == "" {
		return nil, ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byTarget[targetID]
	if idx := latestPendingIndex(list); idx >= 0 {
		ch := list[idx]
		ch.Status = status
		ch.ResolveRoom = room
		return ch, nil
	}
	return nil, ErrNoPendingForUser
}

// Pending returns the latest unanswered challenge for the target.
func (m *Manager) Pending(targetID string) (*Challenge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byTarget[targetID]
	if idx := latestPendingIndex(list); idx >= 0 {
		return list[idx], true
	}
	return nil, false
}

func latestPendingIndex(list []*Challenge) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Status == StatusPending {
			return i
		}
	}
	return -1
}

func (m *Manager) nextID() string {
	n := atomic.AddUint64(&m.seq, 1)
	return fmt.Sprintf("ch-%d-%d", m.now().UnixNano(), n)
}
