package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// StatsProvider serves dynamic-query aggregates from the catalog_items
// table. Metrics and predicates live in JSONB columns so new query kinds
// need no schema change.
type StatsProvider struct {
	pool *pgxpool.Pool
}

func NewStatsProvider(pool *pgxpool.Pool) *StatsProvider {
	return &StatsProvider{pool: pool}
}

func (p *StatsProvider) TopByMetric(ctx context.Context, metric string) (string, error) {
	return p.extremeByMetric(ctx, metric, "DESC")
}

func (p *StatsProvider) BottomByMetric(ctx context.Context, metric string) (string, error) {
	return p.extremeByMetric(ctx, metric, "ASC")
}

func (p *StatsProvider) extremeByMetric(ctx context.Context, metric, dir string) (string, error) {
	var name string
	err := p.pool.QueryRow(ctx,
		`SELECT name FROM catalog_items
		 WHERE metrics ? $1
		 ORDER BY (metrics->>$1)::numeric `+dir+` LIMIT 1`, metric).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("extreme by %s: %w", metric, err)
	}
	return name, nil
}

func (p *StatsProvider) MetricValue(ctx context.Context, item, metric string) (float64, error) {
	var v float64
	err := p.pool.QueryRow(ctx,
		`SELECT (metrics->>$2)::numeric FROM catalog_items WHERE name = $1`,
		item, metric).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("metric %s of %s: %w", metric, item, err)
	}
	return v, nil
}

func (p *StatsProvider) CountWhere(ctx context.Context, predicate string) (int64, error) {
	var n int64
	var err error
	if predicate == "all" {
		err = p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n)
	} else {
		err = p.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM catalog_items
			 WHERE COALESCE((predicates->>$1)::boolean, FALSE)`, predicate).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", predicate, err)
	}
	return n, nil
}

func (p *StatsProvider) SumMetric(ctx context.Context, metric string) (float64, error) {
	var v float64
	err := p.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM((metrics->>$1)::numeric), 0) FROM catalog_items
		 WHERE metrics ? $1`, metric).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", metric, err)
	}
	return v, nil
}

func (p *StatsProvider) AverageMetric(ctx context.Context, metric string) (float64, error) {
	var v float64
	err := p.pool.QueryRow(ctx,
		`SELECT AVG((metrics->>$1)::numeric) FROM catalog_items
		 WHERE metrics ? $1`, metric).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("average %s: %w", metric, err)
	}
	return v, nil
}

func (p *StatsProvider) FirstByDate(ctx context.Context, predicate string) (string, error) {
	return p.edgeByDate(ctx, predicate, "ASC")
}

func (p *StatsProvider) LatestByDate(ctx context.Context, predicate string) (string, error) {
	return p.edgeByDate(ctx, predicate, "DESC")
}

func (p *StatsProvider) edgeByDate(ctx context.Context, predicate, dir string) (string, error) {
	var name string
	var err error
	if predicate == "all" {
		err = p.pool.QueryRow(ctx,
			`SELECT name FROM catalog_items ORDER BY added_at `+dir+` LIMIT 1`).Scan(&name)
	} else {
		err = p.pool.QueryRow(ctx,
			`SELECT name FROM catalog_items
			 WHERE COALESCE((predicates->>$1)::boolean, FALSE)
			 ORDER BY added_at `+dir+` LIMIT 1`, predicate).Scan(&name)
	}
	if err != nil {
		return "", fmt.Errorf("edge by date %s: %w", predicate, err)
	}
	return name, nil
}
