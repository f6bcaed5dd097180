package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"trivia-engine/internal/domain"
	"trivia-engine/internal/match"
)

const (
	// retiredFactor tightens the text threshold for previously rejected
	// questions so they are harder to accidentally re-submit.
	retiredFactor = 0.65
	recentLimit   = 10
)

// Candidate is an existing question the detector compares against.
type Candidate struct {
	QuestionID int64
	Text       string
	Answer     string
	Status     domain.QuestionStatus
}

// CandidateSource supplies the existing-question corpus.
type CandidateSource interface {
	// DedupCandidates returns every question regardless of status.
	DedupCandidates(ctx context.Context) ([]Candidate, error)
	// RecentlyAnswered returns the most recently used answered questions,
	// newest first.
	RecentlyAnswered(ctx context.Context, limit int) ([]Candidate, error)
}

// Matcher is one strategy in the detection cascade. Strategies are tried
// in order until one yields a match.
type Matcher interface {
	Name() string
	Match(text, answer string, corpus, recent []Candidate) *domain.DuplicateMatch
}

// Detector vets candidate questions before they enter the pool.
type Detector struct {
	source   CandidateSource
	matchers []Matcher
	log      *logrus.Entry
}

// New builds a detector with the standard strategy order: answer identity
// first (strictest), then text/concept similarity.
func New(source CandidateSource, baseThreshold float64, log *logrus.Entry) *Detector {
	return &Detector{
		source: source,
		matchers: []Matcher{
			&answerIdentityMatcher{},
			&textConceptMatcher{base: baseThreshold},
		},
		log: log,
	}
}

// Check scans the corpus for a duplicate of the candidate text. A non-nil
// match with Blocking()==true must reject the submission; a storage outage
// degrades to "no duplicate" so user-facing flows never hard-fail here.
func (d *Detector) Check(ctx context.Context, text, answer string) (*domain.DuplicateMatch, error) {
	corpus, err := d.source.DedupCandidates(ctx)
	if err != nil {
		d.log.WithError(err).Warn("duplicate check degraded: candidate corpus unavailable")
		return nil, nil
	}
	recent, err := d.source.RecentlyAnswered(ctx, recentLimit)
	if err != nil {
		d.log.WithError(err).Warn("duplicate check degraded: recent answers unavailable")
		recent = nil
	}

	for _, m := range d.matchers {
		if hit := m.Match(text, answer, corpus, recent); hit != nil {
			d.log.WithFields(logrus.Fields{
				"matcher":  m.Name(),
				"question": hit.QuestionID,
				"score":    fmt.Sprintf("%.2f", hit.Score),
			}).Info("duplicate candidate detected")
			return hit, nil
		}
	}
	return nil, nil
}

// answerIdentityMatcher flags candidates whose normalized answer equals
// that of a retired question (blocking) or a recently answered one.
type answerIdentityMatcher struct{}

func (*answerIdentityMatcher) Name() string { return "answer-identity" }

func (*answerIdentityMatcher) Match(_, answer string, corpus, recent []Candidate) *domain.DuplicateMatch {
	if answer == "" {
		return nil
	}
	norm := match.NormalizeAnswer(answer)
	if norm == "" {
		return nil
	}

	for _, c := range corpus {
		if c.Status != domain.QuestionRetired {
			continue
		}
		if match.NormalizeAnswer(c.Answer) == norm {
			return &domain.DuplicateMatch{QuestionID: c.QuestionID, Score: 1.0, Kind: "answer-retired", Retired: true}
		}
	}
	for _, c := range recent {
		if match.NormalizeAnswer(c.Answer) == norm {
			return &domain.DuplicateMatch{QuestionID: c.QuestionID, Score: 0.9, Kind: "answer-recent"}
		}
	}
	return nil
}

// textConceptMatcher combines edit-distance similarity with concept-set
// overlap; retired candidates are scanned first against a stricter
// threshold.
type textConceptMatcher struct {
	base float64
}

func (*textConceptMatcher) Name() string { return "text-concept" }

func (m *textConceptMatcher) Match(text, _ string, corpus, _ []Candidate) *domain.DuplicateMatch {
	normText := match.NormalizeQuestion(text)
	concepts := ExtractConcepts(text)

	ordered := make([]Candidate, len(corpus))
	copy(ordered, corpus)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Status == domain.QuestionRetired && ordered[j].Status != domain.QuestionRetired
	})

	for _, c := range ordered {
		textSim := match.Ratio(normText, match.NormalizeQuestion(c.Text))
		conceptSim := Jaccard(concepts, ExtractConcepts(c.Text))
		combined := textSim
		if conceptSim > combined {
			combined = conceptSim
		}

		threshold := m.base
		retired := c.Status == domain.QuestionRetired
		if retired {
			threshold = m.base * retiredFactor
		}
		if combined >= threshold {
			return &domain.DuplicateMatch{QuestionID: c.QuestionID, Score: combined, Kind: "text-concept", Retired: retired}
		}
	}
	return nil
}
