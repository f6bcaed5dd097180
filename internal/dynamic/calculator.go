package dynamic

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// StatsProvider exposes the aggregate facts the calculator grades dynamic
// questions against. Implementations live in infra; the catalog itself is
// an external collaborator.
type StatsProvider interface {
	// TopByMetric returns the item name with the highest value for metric.
	TopByMetric(ctx context.Context, metric string) (string, error)
	// BottomByMetric returns the item name with the lowest value for metric.
	BottomByMetric(ctx context.Context, metric string) (string, error)
	// MetricValue returns one item's value for metric.
	MetricValue(ctx context.Context, item, metric string) (float64, error)
	// CountWhere counts catalog items matching a named predicate.
	CountWhere(ctx context.Context, predicate string) (int64, error)
	// SumMetric totals a metric across the catalog.
	SumMetric(ctx context.Context, metric string) (float64, error)
	// AverageMetric averages a metric across the catalog.
	AverageMetric(ctx context.Context, metric string) (float64, error)
	// FirstByDate returns the earliest item matching a named predicate.
	FirstByDate(ctx context.Context, predicate string) (string, error)
	// LatestByDate returns the most recent item matching a named predicate.
	LatestByDate(ctx context.Context, predicate string) (string, error)
}

// AnswerSource computes the ground-truth answer for a dynamic question.
// The concrete Calculator implements it; caching decorators wrap it.
type AnswerSource interface {
	Compute(ctx context.Context, kind, param string) (string, error)
}

type queryOp int

const (
	opTop queryOp = iota
	opBottom
	opCount
	opSum
	opAvg
	opCompare
	opFirst
	opLatest
)

type querySpec struct {
	op        queryOp
	metric    string
	predicate string
}

// queryTable maps every supported dynamic-query kind to its aggregate
// shape. Unknown kinds are not an error: the caller treats an empty
// answer as "question not usable right now".
var queryTable = map[string]querySpec{
	"most_viewed":          {op: opTop, metric: "views"},
	"least_viewed":         {op: opBottom, metric: "views"},
	"most_played":          {op: opTop, metric: "plays"},
	"least_played":         {op: opBottom, metric: "plays"},
	"most_completed":       {op: opTop, metric: "completions"},
	"least_completed":      {op: opBottom, metric: "completions"},
	"highest_rated":        {op: opTop, metric: "rating"},
	"lowest_rated":         {op: opBottom, metric: "rating"},
	"longest_playtime":     {op: opTop, metric: "playtime_hours"},
	"shortest_playtime":    {op: opBottom, metric: "playtime_hours"},
	"most_recommended":     {op: opTop, metric: "recommendations"},
	"least_recommended":    {op: opBottom, metric: "recommendations"},
	"most_replayed":        {op: opTop, metric: "replays"},
	"most_wishlisted":      {op: opTop, metric: "wishlists"},
	"most_discussed":       {op: opTop, metric: "comments"},

	"count_total":        {op: opCount, predicate: "all"},
	"count_completed":    {op: opCount, predicate: "completed"},
	"count_abandoned":    {op: opCount, predicate: "abandoned"},
	"count_backlog":      {op: opCount, predicate: "backlog"},
	"count_multiplayer":  {op: opCount, predicate: "multiplayer"},
	"count_singleplayer": {op: opCount, predicate: "singleplayer"},
	"count_coop":         {op: opCount, predicate: "coop"},
	"count_indie":        {op: opCount, predicate: "indie"},
	"count_free":         {op: opCount, predicate: "free"},
	"count_early_access": {op: opCount, predicate: "early_access"},
	"count_this_year":    {op: opCount, predicate: "this_year"},
	"count_recommended":  {op: opCount, predicate: "recommended"},

	"total_playtime": {op: opSum, metric: "playtime_hours"},
	"total_views":    {op: opSum, metric: "views"},
	"total_plays":    {op: opSum, metric: "plays"},

	"average_rating":          {op: opAvg, metric: "rating"},
	"average_playtime":        {op: opAvg, metric: "playtime_hours"},
	"average_completion_time": {op: opAvg, metric: "completion_hours"},

	"first_played":     {op: opFirst, predicate: "all"},
	"first_completed":  {op: opFirst, predicate: "completed"},
	"oldest_release":   {op: opFirst, predicate: "released"},
	"latest_played":    {op: opLatest, predicate: "all"},
	"latest_completed": {op: opLatest, predicate: "completed"},
	"latest_added":     {op: opLatest, predicate: "added"},

	"compare_views":           {op: opCompare, metric: "views"},
	"compare_plays":           {op: opCompare, metric: "plays"},
	"compare_rating":          {op: opCompare, metric: "rating"},
	"compare_playtime":        {op: opCompare, metric: "playtime_hours"},
	"compare_completions":     {op: opCompare, metric: "completions"},
	"compare_recommendations": {op: opCompare, metric: "recommendations"},
}

// Kinds returns every supported dynamic-query kind.
func Kinds() []string {
	kinds := make([]string, 0, len(queryTable))
	for k := range queryTable {
		kinds = append(kinds, k)
	}
	return kinds
}

// Calculator resolves dynamic-question answers at session start.
type Calculator struct {
	stats StatsProvider
	log   *logrus.Entry
}

func NewCalculator(stats StatsProvider, log *logrus.Entry) *Calculator {
	return &Calculator{stats: stats, log: log}
}

// Compute resolves kind (+ optional parameter) to an answer string. An
// unknown kind or an unparseable comparison parameter yields ("", nil):
// the caller must treat that as "cannot run this question right now".
// Provider failures are returned wrapped.
func (c *Calculator) Compute(ctx context.Context, kind, param string) (string, error) {
	spec, ok := queryTable[kind]
	if !ok {
		c.log.WithField("kind", kind).Warn("unknown dynamic query kind")
		return "", nil
	}

	switch spec.op {
	case opTop:
		return c.wrap(kind)(c.stats.TopByMetric(ctx, spec.metric))
	case opBottom:
		return c.wrap(kind)(c.stats.BottomByMetric(ctx, spec.metric))
	case opCount:
		n, err := c.stats.CountWhere(ctx, spec.predicate)
		if err != nil {
			return "", fmt.Errorf("dynamic %s: %w", kind, err)
		}
		return strconv.FormatInt(n, 10), nil
	case opSum:
		v, err := c.stats.SumMetric(ctx, spec.metric)
		if err != nil {
			return "", fmt.Errorf("dynamic %s: %w", kind, err)
		}
		return formatNumber(v), nil
	case opAvg:
		v, err := c.stats.AverageMetric(ctx, spec.metric)
		if err != nil {
			return "", fmt.Errorf("dynamic %s: %w", kind, err)
		}
		return formatNumber(v), nil
	case opFirst:
		return c.wrap(kind)(c.stats.FirstByDate(ctx, spec.predicate))
	case opLatest:
		return c.wrap(kind)(c.stats.LatestByDate(ctx, spec.predicate))
	case opCompare:
		return c.compare(ctx, kind, spec.metric, param)
	}
	return "", nil
}

func (c *Calculator) wrap(kind string) func(string, error) (string, error) {
	return func(s string, err error) (string, error) {
		if err != nil {
			return "", fmt.Errorf("dynamic %s: %w", kind, err)
		}
		return s, nil
	}
}

// compare resolves an "A vs B" parameter to the winning side by metric.
func (c *Calculator) compare(ctx context.Context, kind, metric, param string) (string, error) {
	left, right, ok := ParseVersus(param)
	if !ok {
		c.log.WithFields(logrus.Fields{"kind": kind, "param": param}).Warn("unparseable comparison parameter")
		return "", nil
	}

	lv, err := c.stats.MetricValue(ctx, left, metric)
	if err != nil {
		return "", fmt.Errorf("dynamic %s (%s): %w", kind, left, err)
	}
	rv, err := c.stats.MetricValue(ctx, right, metric)
	if err != nil {
		return "", fmt.Errorf("dynamic %s (%s): %w", kind, right, err)
	}
	// Ties go to the first-named side.
	if rv > lv {
		return right, nil
	}
	return left, nil
}

// ParseVersus splits an "A vs B" shaped parameter into its sides.
func ParseVersus(param string) (string, string, bool) {
	for _, sep := range []string{" vs ", " vs. ", " versus ", " VS ", " Vs ", " VS. "} {
		if idx := strings.Index(param, sep); idx > 0 {
			left := strings.TrimSpace(param[:idx])
			right := strings.TrimSpace(param[idx+len(sep):])
			if left != "" && right != "" {
				return left, right, true
			}
		}
	}
	return "", "", false
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
