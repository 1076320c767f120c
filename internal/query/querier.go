package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
	"NetBurst/internal/sink"
)

const defaultListLimit = 100

// Filter narrows burst queries. Zero values mean no constraint.
type Filter struct {
	Src        string
	Dst        string
	MinSize    uint64
	MinPackets uint32
	Since      float64 // completion time lower bound
	Until      float64 // completion time upper bound
	Limit      int
}

// PairSummary aggregates the matching bursts of one src-dst pair.
type PairSummary struct {
	Src          string `json:"src"`
	Dst          string `json:"dst"`
	BurstCount   uint64 `json:"burst_count"`
	TotalBytes   uint64 `json:"total_bytes"`
	TotalPackets uint64 `json:"total_packets"`
	MaxSize      uint32 `json:"max_size"`
}

// Summary aggregates the bursts matching a filter, overall and broken down
// by src-dst pair. Pairs are ordered by total bytes, heaviest first.
type Summary struct {
	BurstCount   uint64        `json:"burst_count"`
	TotalBytes   uint64        `json:"total_bytes"`
	TotalPackets uint64        `json:"total_packets"`
	MaxSize      uint32        `json:"max_size"`
	AvgDuration  float64       `json:"avg_duration"`
	Pairs        []PairSummary `json:"pairs"`
}

// Querier defines the interface for querying stored bursts.
type Querier interface {
	ListBursts(ctx context.Context, f Filter) ([]model.Burst, error)
	Summarize(ctx context.Context, f Filter) (*Summary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := sink.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// buildWhere renders the filter as a WHERE clause with placeholder args.
func buildWhere(f Filter) (string, []interface{}) {
	var whereClauses []string
	args := []interface{}{}

	if f.Src != "" {
		whereClauses = append(whereClauses, "Src = ?")
		args = append(args, f.Src)
	}
	if f.Dst != "" {
		whereClauses = append(whereClauses, "Dst = ?")
		args = append(args, f.Dst)
	}
	if f.MinSize > 0 {
		whereClauses = append(whereClauses, "SizeBytes >= ?")
		args = append(args, f.MinSize)
	}
	if f.MinPackets > 0 {
		whereClauses = append(whereClauses, "NumPackets >= ?")
		args = append(args, f.MinPackets)
	}
	if f.Since > 0 {
		whereClauses = append(whereClauses, "CompletionTime >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		whereClauses = append(whereClauses, "CompletionTime <= ?")
		args = append(args, f.Until)
	}

	if len(whereClauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(whereClauses, " AND "), args
}

// ListBursts returns matching bursts, most recently completed first.
func (q *clickhouseQuerier) ListBursts(ctx context.Context, f Filter) ([]model.Burst, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			CompletionTime,
			Src,
			Dst,
			SrcPort,
			DstPort,
			StartTime,
			EndTime,
			NumPackets,
			SizeBytes
		FROM bursts
	`)

	where, args := buildWhere(f)
	queryBuilder.WriteString(where)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	queryBuilder.WriteString(" ORDER BY CompletionTime DESC LIMIT ?")
	args = append(args, limit)

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var bursts []model.Burst
	for rows.Next() {
		var b model.Burst
		if err := rows.Scan(&b.CompletionTime, &b.Src, &b.Dst, &b.SrcPort, &b.DstPort,
			&b.Start, &b.End, &b.NumPackets, &b.Size); err != nil {
			return nil, fmt.Errorf("failed to scan burst: %w", err)
		}
		bursts = append(bursts, b)
	}

	return bursts, nil
}

// Summarize aggregates all matching bursts.
func (q *clickhouseQuerier) Summarize(ctx context.Context, f Filter) (*Summary, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			count() AS BurstCount,
			sum(SizeBytes) AS TotalBytes,
			sum(NumPackets) AS TotalPackets,
			max(SizeBytes) AS MaxSize,
			avg(EndTime - StartTime) AS AvgDuration
		FROM bursts
	`)

	where, args := buildWhere(f)
	queryBuilder.WriteString(where)

	var summary Summary
	row := q.conn.QueryRow(ctx, queryBuilder.String(), args...)
	if err := row.Scan(&summary.BurstCount, &summary.TotalBytes, &summary.TotalPackets,
		&summary.MaxSize, &summary.AvgDuration); err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}

	// avg() over zero rows is NaN; report a clean zero instead.
	if summary.BurstCount == 0 {
		summary.AvgDuration = 0
		return &summary, nil
	}

	var pairBuilder strings.Builder
	pairBuilder.WriteString(`
		SELECT
			Src,
			Dst,
			count() AS BurstCount,
			sum(SizeBytes) AS TotalBytes,
			sum(NumPackets) AS TotalPackets,
			max(SizeBytes) AS MaxSize
		FROM bursts
	`)
	pairBuilder.WriteString(where)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	pairBuilder.WriteString(" GROUP BY Src, Dst ORDER BY TotalBytes DESC LIMIT ?")
	pairArgs := append(append([]interface{}{}, args...), limit)

	rows, err := q.conn.Query(ctx, pairBuilder.String(), pairArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute pair summary query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p PairSummary
		if err := rows.Scan(&p.Src, &p.Dst, &p.BurstCount, &p.TotalBytes,
			&p.TotalPackets, &p.MaxSize); err != nil {
			return nil, fmt.Errorf("failed to scan pair summary: %w", err)
		}
		summary.Pairs = append(summary.Pairs, p)
	}

	return &summary, nil
}
