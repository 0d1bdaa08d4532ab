package game

import (
	"fmt"
	"time"

	"trivia_duel/internal/domain"
)

// Match - конечный автомат одного матча.
// Не потокобезопасен: все вызовы сериализует владелец (ws.Room)
type Match struct {
	m         domain.Match
	questions []domain.Question
	answers   map[string]int // questionID -> correct index, клиенту не уходит
	timing    Timing
	result    *Result
}

// AnswerOutcome - результат принятого ответа
type AnswerOutcome struct {
	Player   domain.PlayerState
	Correct  bool
	TimedOut bool // ответ пришел после дедлайна и засчитан как таймаут
	State    domain.MatchState
	Result   *Result // != nil, если матч завершился этим ответом
}

// NewMatch собирает матч из уже выбранных вопросов. Порядок questions - порядок в матче
func NewMatch(id, category, userA, userB string, questions []domain.Question, timing Timing, now time.Time) (*Match, error) {
	if userA == userB {
		return nil, ErrSamePlayer
	}
	if len(questions) != domain.QuestionsPerMatch {
		return nil, fmt.Errorf("%w: got %d questions", ErrInvalidQuestionSet, len(questions))
	}

	g := &Match{
		questions: append([]domain.Question(nil), questions...),
		answers:   make(map[string]int, len(questions)),
		timing:    timing,
	}
	g.m = domain.Match{
		ID:        id,
		Category:  category,
		State:     domain.MatchMatched,
		CreatedAt: now,
	}
	for i, q := range questions {
		if _, dup := g.answers[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question %s", ErrInvalidQuestionSet, q.ID)
		}
		g.answers[q.ID] = q.CorrectIndex
		g.m.QuestionSet[i] = domain.MatchQuestion{
			QuestionID: q.ID,
			Difficulty: q.Difficulty,
			Order:      i + 1,
		}
	}
	for i, uid := range [2]string{userA, userB} {
		g.m.Players[i] = domain.PlayerState{
			UserID:     uid,
			Connected:  true,
			LastSeenAt: now,
			Answers:    []domain.AnswerRecord{},
		}
	}
	return g, nil
}

func (g *Match) ID() string                   { return g.m.ID }
func (g *Match) Category() string             { return g.m.Category }
func (g *Match) State() domain.MatchState     { return g.m.State }
func (g *Match) IsTerminal() bool             { return g.m.State.IsTerminal() }
func (g *Match) Result() *Result              { return g.result }
func (g *Match) Timing() Timing               { return g.timing }
func (g *Match) HasPlayer(userID string) bool { return g.m.HasPlayer(userID) }
func (g *Match) UserIDs() []string            { return g.m.UserIDs() }

// Start переводит матч в ACTIVE и запускает таймеры вопросов для обоих игроков
func (g *Match) Start(now time.Time) error {
	if g.m.State != domain.MatchMatched {
		return fmt.Errorf("start from %s: %w", g.m.State, ErrUnknownMatch)
	}
	g.m.State = domain.MatchActive
	started := now
	g.m.StartedAt = &started
	for i := range g.m.Players {
		g.m.Players[i].StartedAt = now
		g.m.Players[i].QuestionShownAt = now
	}
	return nil
}

// Questions - вопросы для match_start, без ключа ответов
func (g *Match) Questions() []domain.QuestionView {
	views := make([]domain.QuestionView, len(g.questions))
	for i, q := range g.questions {
		views[i] = q.View(i + 1)
	}
	return views
}

// SubmitAnswer применяет ответ игрока. selected == nil - таймаут.
// Ошибки валидации ничего не меняют в состоянии
func (g *Match) SubmitAnswer(userID, questionID string, selected *int, now time.Time) (*AnswerOutcome, error) {
	if g.m.State.IsTerminal() || g.m.State == domain.MatchMatched {
		return nil, ErrUnknownMatch
	}
	p := g.m.Player(userID)
	if p == nil {
		return nil, ErrUnknownMatch
	}
	if p.Ended() {
		return nil, ErrPlayerAlreadyEnded
	}
	if g.m.QuestionSet[p.CurrentIndex].QuestionID != questionID {
		return nil, ErrStaleQuestion
	}
	if selected != nil && (*selected < 0 || *selected >= domain.OptionsPerQuestion) {
		return nil, ErrInvalidOption
	}
	correctIndex, ok := g.answers[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s in match %s", ErrQuestionNotFound, questionID, g.m.ID)
	}

	out := &AnswerOutcome{}
	if deadline, enforced := g.timing.deadline(p.QuestionShownAt); enforced && now.After(deadline) {
		out.TimedOut = true
	}

	record := domain.AnswerRecord{QuestionID: questionID, AnsweredAt: now}
	if selected != nil && !out.TimedOut {
		v := *selected
		record.Selected = &v
		record.IsCorrect = v == correctIndex
	}
	p.Answers = append(p.Answers, record)
	p.LastSeenAt = now
	out.Correct = record.IsCorrect

	if record.IsCorrect {
		p.CurrentIndex++
		if p.CurrentIndex > p.FurthestIndex {
			p.FurthestIndex = p.CurrentIndex
		}
		p.QuestionShownAt = now
		if p.CurrentIndex == domain.QuestionsPerMatch {
			p.Completed = true
			endPlayer(p, now)
		}
	} else {
		failPlayer(p, now)
	}

	out.Player = clonePlayer(*p)
	out.Result = g.reevaluate(now)
	out.State = g.m.State
	return out, nil
}

// Forfeit - игрок не вернулся за grace-период. Соперник побеждает всегда,
// независимо от прогресса
func (g *Match) Forfeit(loserID string, now time.Time) (*Result, error) {
	if g.m.State.IsTerminal() {
		return nil, ErrUnknownMatch
	}
	opp := g.m.Opponent(loserID)
	if opp == nil {
		return nil, ErrUnknownMatch
	}
	winner := opp.UserID
	loser := loserID
	g.finish(domain.MatchForfeited, domain.FinishForfeit, &winner, &loser, RuleForfeit, now)
	return g.result, nil
}

// Cancel - матч закрыт без победителя и без наград
func (g *Match) Cancel(now time.Time) (*Result, error) {
	if g.m.State.IsTerminal() {
		return nil, ErrUnknownMatch
	}
	g.finish(domain.MatchCancelled, domain.FinishCancelled, nil, nil, "", now)
	return g.result, nil
}

// Expire закрывает зависший матч. Если никто не ответил ни на один вопрос -
// EXPIRED без наград, иначе незавершившие игроки проигрывают на текущем вопросе
// и победитель определяется обычным порядком
func (g *Match) Expire(now time.Time) (*Result, error) {
	if g.m.State.IsTerminal() {
		return nil, ErrUnknownMatch
	}
	if !g.AnyAnswers() {
		g.finish(domain.MatchExpired, domain.FinishExpired, nil, nil, "", now)
		return g.result, nil
	}

	for i := range g.m.Players {
		p := &g.m.Players[i]
		if p.Ended() {
			continue
		}
		p.Answers = append(p.Answers, domain.AnswerRecord{
			QuestionID: g.m.QuestionSet[p.CurrentIndex].QuestionID,
			AnsweredAt: now,
		})
		failPlayer(p, now)
	}
	g.reevaluate(now)
	return g.result, nil
}

// SetConnected отмечает (пере)подключение игрока
func (g *Match) SetConnected(userID string, connected bool, now time.Time) (domain.PlayerState, error) {
	p := g.m.Player(userID)
	if p == nil {
		return domain.PlayerState{}, ErrUnknownMatch
	}
	p.Connected = connected
	p.LastSeenAt = now
	if connected {
		p.DisconnectedAt = nil
	} else {
		t := now
		p.DisconnectedAt = &t
	}
	return clonePlayer(*p), nil
}

// Player - копия состояния игрока
func (g *Match) Player(userID string) (domain.PlayerState, bool) {
	p := g.m.Player(userID)
	if p == nil {
		return domain.PlayerState{}, false
	}
	return clonePlayer(*p), true
}

// PlayerEnded - закончил ли игрок свою часть матча
func (g *Match) PlayerEnded(userID string) bool {
	p := g.m.Player(userID)
	return p != nil && p.Ended()
}

// AnyAnswers - был ли хоть один ответ в матче
func (g *Match) AnyAnswers() bool {
	for i := range g.m.Players {
		if len(g.m.Players[i].Answers) > 0 {
			return true
		}
	}
	return false
}

// Snapshot - глубокая копия для сохранения и отдачи наружу
func (g *Match) Snapshot() domain.Match {
	s := g.m
	for i := range s.Players {
		s.Players[i] = clonePlayer(s.Players[i])
	}
	if s.WinnerUserID != nil {
		w := *s.WinnerUserID
		s.WinnerUserID = &w
	}
	if s.FinishReason != nil {
		r := *s.FinishReason
		s.FinishReason = &r
	}
	return s
}

func (g *Match) reevaluate(now time.Time) *Result {
	a, b := &g.m.Players[0], &g.m.Players[1]
	switch {
	case a.Ended() && b.Ended():
		winnerID, rule := ResolveWinner(standing(a), standing(b))
		loserID := a.UserID
		if winnerID == a.UserID {
			loserID = b.UserID
		}
		g.finish(domain.MatchFinished, domain.FinishNormal, &winnerID, &loserID, rule, now)
		return g.result
	case a.Ended() || b.Ended():
		g.m.State = domain.MatchWaitingOnOpponent
	}
	return nil
}

func (g *Match) finish(state domain.MatchState, reason domain.FinishReason, winner, loser *string, rule Rule, now time.Time) {
	g.m.State = state
	finished := now
	g.m.FinishedAt = &finished
	r := reason
	g.m.FinishReason = &r
	if winner != nil {
		w := *winner
		g.m.WinnerUserID = &w
	}
	g.result = &Result{
		MatchID:  g.m.ID,
		WinnerID: winner,
		LoserID:  loser,
		Reason:   reason,
		Rule:     rule,
		State:    state,
	}
}

func standing(p *domain.PlayerState) Standing {
	return Standing{UserID: p.UserID, FurthestIndex: p.FurthestIndex, TotalTimeMs: p.TotalTimeMs}
}

func failPlayer(p *domain.PlayerState, now time.Time) {
	idx := p.CurrentIndex
	p.FailedAtIndex = &idx
	p.FurthestIndex = p.CurrentIndex
	endPlayer(p, now)
}

func endPlayer(p *domain.PlayerState, now time.Time) {
	ended := now
	p.EndedAt = &ended
	ms := now.Sub(p.StartedAt).Milliseconds()
	p.TotalTimeMs = &ms
}

func clonePlayer(p domain.PlayerState) domain.PlayerState {
	p.Answers = append([]domain.AnswerRecord(nil), p.Answers...)
	if p.FailedAtIndex != nil {
		v := *p.FailedAtIndex
		p.FailedAtIndex = &v
	}
	if p.TotalTimeMs != nil {
		v := *p.TotalTimeMs
		p.TotalTimeMs = &v
	}
	if p.EndedAt != nil {
		v := *p.EndedAt
		p.EndedAt = &v
	}
	if p.DisconnectedAt != nil {
		v := *p.DisconnectedAt
		p.DisconnectedAt = &v
	}
	return p
}
