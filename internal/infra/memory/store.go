package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-engine/internal/app"
	"trivia-engine/internal/dedup"
	"trivia-engine/internal/domain"
)

// Store is an in-memory implementation of app.Store. It backs unit tests
// and demos; RunInTx offers no isolation beyond the store's own mutex.
type Store struct {
	mu sync.RWMutex

	questions map[int64]*domain.Question
	sessions  map[int64]*domain.Session
	answers   map[int64]*domain.Answer
	dialogs   map[int64]*domain.DialogSession

	nextQuestionID int64
	nextSessionID  int64
	nextAnswerID   int64
	nextDialogID   int64

	// forcedDialogConflicts makes the next n dialog inserts fail with a
	// sequence conflict, to exercise the repair path in tests.
	forcedDialogConflicts int
}

func NewStore() *Store {
	return &Store{
		questions: make(map[int64]*domain.Question),
		sessions:  make(map[int64]*domain.Session),
		answers:   make(map[int64]*domain.Answer),
		dialogs:   make(map[int64]*domain.DialogSession),
	}
}

func (s *Store) Questions() app.QuestionRepository { return &questionRepo{s} }
func (s *Store) Sessions() app.SessionRepository   { return &sessionRepo{s} }
func (s *Store) Answers() app.AnswerRepository     { return &answerRepo{s} }
func (s *Store) Dialogs() app.DialogRepository     { return &dialogRepo{s} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	return fn(ctx, s)
}

// FailNextDialogInserts arms the sequence-conflict test hook.
func (s *Store) FailNextDialogInserts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedDialogConflicts = n
}

type questionRepo struct{ s *Store }

func (r *questionRepo) Insert(_ context.Context, q *domain.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextQuestionID++
	q.ID = r.s.nextQuestionID
	cp := *q
	r.s.questions[q.ID] = &cp
	return nil
}

func (r *questionRepo) GetByID(_ context.Context, id int64) (*domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *questionRepo) UpdateStatus(_ context.Context, id int64, status domain.QuestionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Status = status
	return nil
}

func (r *questionRepo) ResetAllStatus(_ context.Context, from, to domain.QuestionStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, q := range r.s.questions {
		if q.Status == from {
			q.Status = to
			n++
		}
	}
	return n, nil
}

func (r *questionRepo) SelectCandidates(_ context.Context, f app.QuestionFilter) ([]*domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Question
	for _, q := range r.s.questions {
		if !matchesFilter(q, f) {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}

	switch f.Order {
	case app.OrderNewestFirst:
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].UsageCount < out[j].UsageCount
		})
	case app.OrderLeastUsedFirst:
		sort.Slice(out, func(i, j int) bool {
			if out[i].UsageCount != out[j].UsageCount {
				return out[i].UsageCount < out[j].UsageCount
			}
			return out[i].ID < out[j].ID
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesFilter(q *domain.Question, f app.QuestionFilter) bool {
	if q.Status != f.Status {
		return false
	}
	if f.CommunityOnly && !q.CommunitySubmitted() {
		return false
	}
	if f.SystemOnly && q.CommunitySubmitted() {
		return false
	}
	if f.ExcludeSubmitter != "" && q.SubmitterID != nil && *q.SubmitterID == f.ExcludeSubmitter {
		return false
	}
	if !f.UnusedOrBefore.IsZero() {
		if q.LastUsedAt != nil && !q.LastUsedAt.Before(f.UnusedOrBefore) {
			return false
		}
	}
	if len(f.InsightCategories) > 0 {
		hit := q.IsDynamic
		for _, c := range f.InsightCategories {
			if q.Category == c {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func (r *questionRepo) CountByStatus(_ context.Context, status domain.QuestionStatus) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, q := range r.s.questions {
		if q.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *questionRepo) MarkUsed(_ context.Context, id int64, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Status = domain.QuestionAnswered
	q.UsageCount++
	usedAt := now
	q.LastUsedAt = &usedAt
	return nil
}

func (r *questionRepo) RecycleStale(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, q := range r.s.questions {
		if limit > 0 && n >= int64(limit) {
			break
		}
		if q.Status == domain.QuestionAnswered && q.LastUsedAt != nil && q.LastUsedAt.Before(cutoff) {
			q.Status = domain.QuestionAvailable
			n++
		}
	}
	return n, nil
}

func (r *questionRepo) DedupCandidates(_ context.Context) ([]dedup.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]dedup.Candidate, 0, len(r.s.questions))
	for _, q := range r.s.questions {
		out = append(out, dedup.Candidate{
			QuestionID: q.ID,
			Text:       q.Text,
			Answer:     q.CorrectAnswer,
			Status:     q.Status,
		})
	}
	return out, nil
}

func (r *questionRepo) RecentlyAnswered(_ context.Context, limit int) ([]dedup.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var answered []*domain.Question
	for _, q := range r.s.questions {
		if q.Status == domain.QuestionAnswered && q.LastUsedAt != nil {
			answered = append(answered, q)
		}
	}
	sort.Slice(answered, func(i, j int) bool {
		return answered[i].LastUsedAt.After(*answered[j].LastUsedAt)
	})
	if limit > 0 && len(answered) > limit {
		answered = answered[:limit]
	}
	out := make([]dedup.Candidate, 0, len(answered))
	for _, q := range answered {
		out = append(out, dedup.Candidate{
			QuestionID: q.ID,
			Text:       q.Text,
			Answer:     q.CorrectAnswer,
			Status:     q.Status,
		})
	}
	return out, nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Insert(_ context.Context, sess *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess.Status == domain.SessionActive {
		for _, existing := range r.s.sessions {
			if existing.Status == domain.SessionActive {
				return domain.ErrActiveSessionExists
			}
		}
	}
	r.s.nextSessionID++
	sess.ID = r.s.nextSessionID
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id int64) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) GetActive(_ context.Context) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sess := range r.s.sessions {
		if sess.Status == domain.SessionActive {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *sessionRepo) Update(_ context.Context, sess *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *sessionRepo) ExpireOlderThan(_ context.Context, cutoff, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, sess := range r.s.sessions {
		if sess.Status == domain.SessionActive && sess.StartedAt.Before(cutoff) {
			sess.Status = domain.SessionExpired
			endedAt := now
			sess.EndedAt = &endedAt
			n++
		}
	}
	return n, nil
}

type answerRepo struct{ s *Store }

func (r *answerRepo) Insert(_ context.Context, a *domain.Answer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.answers {
		if existing.SessionID == a.SessionID && existing.UserID == a.UserID {
			return domain.ErrDuplicateSubmission
		}
	}
	r.s.nextAnswerID++
	a.ID = r.s.nextAnswerID
	cp := *a
	r.s.answers[a.ID] = &cp
	return nil
}

func (r *answerRepo) ListBySession(_ context.Context, sessionID int64, includeConflicts bool) ([]*domain.Answer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Answer
	for _, a := range r.s.answers {
		if a.SessionID != sessionID {
			continue
		}
		if !includeConflicts && a.Conflict {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *answerRepo) MarkScored(_ context.Context, correctIDs, closeIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range correctIDs {
		if a, ok := r.s.answers[id]; ok {
			a.IsCorrect = true
		}
	}
	for _, id := range closeIDs {
		if a, ok := r.s.answers[id]; ok {
			a.IsClose = true
		}
	}
	return nil
}

func (r *answerRepo) MarkFirstCorrect(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.answers[id]; ok {
		a.IsFirstCorrect = true
	}
	return nil
}

type dialogRepo struct{ s *Store }

func (r *dialogRepo) Insert(_ context.Context, d *domain.DialogSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.forcedDialogConflicts > 0 {
		r.s.forcedDialogConflicts--
		return domain.ErrSequenceConflict
	}
	r.s.nextDialogID++
	d.ID = r.s.nextDialogID
	cp := *d
	r.s.dialogs[d.ID] = &cp
	return nil
}

func (r *dialogRepo) GetByID(_ context.Context, id int64) (*domain.DialogSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.dialogs[id]
	if !ok {
		return nil, domain.ErrDialogNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *dialogRepo) GetActive(_ context.Context, userID string, kind domain.DialogKind) (*domain.DialogSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.DialogSession
	for _, d := range r.s.dialogs {
		if d.UserID != userID || d.Kind != kind || !d.Status.Open() {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			latest = d
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *dialogRepo) Update(_ context.Context, d *domain.DialogSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.dialogs[d.ID]; !ok {
		return domain.ErrDialogNotFound
	}
	cp := *d
	r.s.dialogs[d.ID] = &cp
	return nil
}

func (r *dialogRepo) ListOpen(_ context.Context) ([]*domain.DialogSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.DialogSession
	for _, d := range r.s.dialogs {
		if d.Status.Open() {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *dialogRepo) ExpireOlderThan(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.dialogs {
		if d.Status.Open() && d.Expired(now) {
			d.Status = domain.DialogExpired
			n++
		}
	}
	return n, nil
}

func (r *dialogRepo) RepairSequence(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for id := range r.s.dialogs {
		if id > max {
			max = id
		}
	}
	r.s.nextDialogID = max
	return nil
}
