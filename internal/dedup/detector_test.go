package dedup

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-engine/internal/domain"
)

type staticSource struct {
	corpus []Candidate
	recent []Candidate
	err    error
}

func (s *staticSource) DedupCandidates(context.Context) ([]Candidate, error) {
	return s.corpus, s.err
}

func (s *staticSource) RecentlyAnswered(context.Context, int) ([]Candidate, error) {
	return s.recent, s.err
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func TestRetiredAnswerBlocks(t *testing.T) {
	source := &staticSource{
		corpus: []Candidate{
			{QuestionID: 7, Text: "old question", Answer: "Grand Theft Auto", Status: domain.QuestionRetired},
		},
	}
	d := New(source, 0.75, testLog())

	hit, err := d.Check(context.Background(), "brand new text", "GTA")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(7), hit.QuestionID)
	assert.Equal(t, 1.0, hit.Score)
	assert.True(t, hit.Retired)
	assert.True(t, hit.Blocking())
}

func TestRecentAnswerWarns(t *testing.T) {
	source := &staticSource{
		recent: []Candidate{
			{QuestionID: 3, Answer: "Portal 2", Status: domain.QuestionAnswered},
		},
	}
	d := New(source, 0.75, testLog())

	hit, err := d.Check(context.Background(), "something else entirely", "portal 2")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 0.9, hit.Score)
	assert.Equal(t, "answer-recent", hit.Kind)
	assert.False(t, hit.Blocking())
}

func TestTextSimilarityMatch(t *testing.T) {
	source := &staticSource{
		corpus: []Candidate{
			{QuestionID: 11, Text: "Which game has the most views?", Status: domain.QuestionAvailable},
		},
	}
	d := New(source, 0.75, testLog())

	hit, err := d.Check(context.Background(), "What game has the most views?", "")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(11), hit.QuestionID)
	assert.Equal(t, "text-concept", hit.Kind)
}

func TestRetiredThresholdIsStricter(t *testing.T) {
	// Similar enough to clear base*0.65 but not base itself.
	text := "Which game has the most total views?"
	existing := "What game got the most views overall?"

	asAvailable := &staticSource{corpus: []Candidate{{QuestionID: 1, Text: existing, Status: domain.QuestionAvailable}}}
	asRetired := &staticSource{corpus: []Candidate{{QuestionID: 1, Text: existing, Status: domain.QuestionRetired}}}

	base := 0.95 // deliberately high so only the retired scan can trip
	hitAvailable, err := New(asAvailable, base, testLog()).Check(context.Background(), text, "")
	require.NoError(t, err)
	hitRetired, err := New(asRetired, base, testLog()).Check(context.Background(), text, "")
	require.NoError(t, err)

	assert.Nil(t, hitAvailable)
	require.NotNil(t, hitRetired)
	assert.True(t, hitRetired.Retired)
}

func TestStorageOutageDegradesToNoMatch(t *testing.T) {
	source := &staticSource{err: assert.AnError}
	d := New(source, 0.75, testLog())

	hit, err := d.Check(context.Background(), "any text", "any answer")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestConceptExtraction(t *testing.T) {
	concepts := ExtractConcepts("Which game has the most views, Portal or Minecraft?")
	assert.Contains(t, concepts, "metric:views")
	assert.Contains(t, concepts, "superlative")
	assert.Contains(t, concepts, "entity:portal")
	assert.Contains(t, concepts, "entity:minecraft")
	assert.NotContains(t, concepts, "entity:which")
}
