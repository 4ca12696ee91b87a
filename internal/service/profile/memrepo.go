package profile

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/domain"
)

// memrepo is an in-memory repository used when no DB is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	profiles    map[string]*domain.FlipProfile
	gamesByID   map[string]*domain.FlipGame
	gamesByUser map[string][]*domain.FlipGame // playerID -> slice (append, latest last)
}

func NewMemoryRepository() Repository {
	return &memrepo{
		profiles:    make(map[string]*domain.FlipProfile),
		gamesByID:   make(map[string]*domain.FlipGame),
		gamesByUser: make(map[string][]*domain.FlipGame),
	}
}

func (m *memrepo) GetProfile(ctx context.Context, playerID string) (*domain.FlipProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[strings.TrimSpace(playerID)]; ok && p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memrepo) UpsertProfile(ctx context.Context, profile *domain.FlipProfile) error {
	if profile == nil {
		return nil
	}
	cp := *profile
	m.mu.Lock()
	if prev, ok := m.profiles[cp.PlayerID]; ok && !prev.CreatedAt.IsZero() {
		cp.CreatedAt = prev.CreatedAt
	}
	m.profiles[cp.PlayerID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) TopProfiles(ctx context.Context, limit int) ([]*domain.FlipProfile, error) {
	m.mu.RLock()
	items := make([]*domain.FlipProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if p.GamesPlayed > 0 {
			cp := *p
			items = append(items, &cp)
		}
	}
	m.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rating != items[j].Rating {
			return items[i].Rating > items[j].Rating
		}
		if items[i].GamesPlayed != items[j].GamesPlayed {
			return items[i].GamesPlayed > items[j].GamesPlayed
		}
		return items[i].PlayerID < items[j].PlayerID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.FlipGame) error {
	if game == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.gamesByID[game.GameID]; exists {
		return nil
	}
	m.nextID++
	cp := *game
	cp.ID = m.nextID
	cp.Moves = append([]string(nil), game.Moves...)
	m.gamesByID[cp.GameID] = &cp
	for _, id := range []string{cp.FirstID, cp.SecondID} {
		if id != "" {
			m.gamesByUser[id] = append(m.gamesByUser[id], &cp)
		}
	}
	return nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.FlipGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.gamesByUser[strings.TrimSpace(playerID)]
	if len(list) == 0 {
		return []*domain.FlipGame{}, nil
	}
	items := append([]*domain.FlipGame(nil), list...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
