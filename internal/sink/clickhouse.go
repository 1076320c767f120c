package sink

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetBurst/internal/config"
	"NetBurst/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS bursts (
    CompletionTime Float64,
    Src            String,
    Dst            String,
    SrcPort        Nullable(UInt16),
    DstPort        Nullable(UInt16),
    StartTime      Float64,
    EndTime        Float64,
    NumPackets     UInt16,
    SizeBytes      UInt32
) ENGINE = MergeTree()
ORDER BY (Src, Dst, CompletionTime);
`

// ClickHouseSink inserts bursts into the bursts table.
type ClickHouseSink struct {
	conn driver.Conn
}

// NewClickHouseSink connects to ClickHouse and ensures the bursts table
// exists.
func NewClickHouseSink(cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseSink{conn: conn}, nil
}

// Connect opens a ClickHouse connection and verifies it with a ping. The
// query API shares this with the sink.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (s *ClickHouseSink) Name() string {
	return "clickhouse"
}

// WriteBursts inserts one batch into the bursts table.
func (s *ClickHouseSink) WriteBursts(ctx context.Context, bursts []model.Burst) error {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO bursts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, b := range bursts {
		err = batch.Append(
			b.CompletionTime,
			b.Src,
			b.Dst,
			b.SrcPort,
			b.DstPort,
			b.Start,
			b.End,
			b.NumPackets,
			b.Size,
		)
		if err != nil {
			return fmt.Errorf("failed to append burst to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseSink) Close(_ context.Context) error {
	return s.conn.Close()
}
