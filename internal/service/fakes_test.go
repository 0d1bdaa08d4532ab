package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/events"
)

var errStorage = errors.New("storage unavailable")

type fakePool struct {
	questions []domain.Question
	calls     int
}

// пул с n вопросами каждой сложности в категории
func newFakePool(category string, perBand map[domain.Difficulty]int) *fakePool {
	p := &fakePool{}
	for _, band := range domain.MatchBands {
		for i := 0; i < perBand[band.Difficulty]; i++ {
			p.questions = append(p.questions, domain.Question{
				ID:           fmt.Sprintf("%s-%s-%d", category, band.Difficulty, i),
				Category:     category,
				Difficulty:   band.Difficulty,
				Text:         "q",
				Options:      [4]string{"a", "b", "c", "d"},
				CorrectIndex: i % 4,
			})
		}
	}
	return p
}

func (p *fakePool) FindUnseen(_ context.Context, category string, difficulty domain.Difficulty, excludeIDs []string, limit int) ([]domain.Question, error) {
	p.calls++
	skip := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = true
	}
	var out []domain.Question
	for _, q := range p.questions {
		if q.Category != category || q.Difficulty != difficulty || skip[q.ID] {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeExposure struct {
	mu      sync.Mutex
	seen    map[string]map[string]bool
	markErr error
	marks   int
}

func newFakeExposure() *fakeExposure {
	return &fakeExposure{seen: map[string]map[string]bool{}}
}

func (e *fakeExposure) SeenIDs(_ context.Context, category string, userIDs []string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := map[string]bool{}
	for _, uid := range userIDs {
		for id := range e.seen[category+"/"+uid] {
			set[id] = true
		}
	}
	var ids []string
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *fakeExposure) Mark(_ context.Context, category string, userIDs, questionIDs []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.markErr != nil {
		return e.markErr
	}
	e.marks++
	for _, uid := range userIDs {
		k := category + "/" + uid
		if e.seen[k] == nil {
			e.seen[k] = map[string]bool{}
		}
		for _, q := range questionIDs {
			e.seen[k][q] = true
		}
	}
	return nil
}

func (e *fakeExposure) has(category, userID, questionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen[category+"/"+userID][questionID]
}

type fakeProgress struct {
	mu       sync.Mutex
	failures int // сколько ближайших вызовов вернут ошибку
	calls    int
	totals   map[string]domain.UserProgress
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{totals: map[string]domain.UserProgress{}}
}

func (p *fakeProgress) ApplyDeltas(_ context.Context, deltas []domain.ProgressDelta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return errStorage
	}
	for _, d := range deltas {
		t := p.totals[d.UserID]
		t.UserID = d.UserID
		t.Points += d.Points
		t.Coins += d.Coins
		t.Answered += d.Answered
		t.Correct += d.Correct
		t.MatchesPlayed++
		if d.Won {
			t.MatchesWon++
		}
		p.totals[d.UserID] = t
	}
	return nil
}

func (p *fakeProgress) get(userID string) domain.UserProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals[userID]
}

type fakeMatches struct {
	mu    sync.Mutex
	saved map[string]domain.Match
}

func (m *fakeMatches) Save(_ context.Context, match *domain.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]domain.Match{}
	}
	m.saved[match.ID] = *match
	return nil
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []domain.AuditLog
}

func (a *fakeAudit) Create(_ context.Context, log *domain.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

func (a *fakeAudit) actions(userID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, l := range a.logs {
		if l.UserID == userID {
			out = append(out, l.Action)
		}
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.MatchFinished
}

func (p *fakePublisher) PublishMatchFinished(_ context.Context, ev events.MatchFinished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
