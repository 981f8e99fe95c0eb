package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage is one database shard.
type PostgresStorage struct {
	Db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{Db: db}
}

// Connect opens and pings the database, sizes the pool and creates the
// schema.
func Connect(ctx context.Context, connectionString string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	p := NewPostgresStorage(db)
	if err := p.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return p, nil
}

// Shards routes every query for a user to the same database.
type Shards struct {
	stores []*PostgresStorage
	log    *zap.Logger
}

func NewShards(log *zap.Logger, stores ...*PostgresStorage) *Shards {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shards{stores: stores, log: log.Named("postgres")}
}

func InitializePostgresShards(ctx context.Context, connections []string, log *zap.Logger) (*Shards, error) {
	if len(connections) == 0 {
		return nil, errors.New("no database connections configured")
	}
	shards := NewShards(log)
	for i, conn := range connections {
		pg, err := Connect(ctx, conn)
		if err != nil {
			_ = shards.Close()
			return nil, fmt.Errorf("failed to connect shard %d: %w", i, err)
		}
		shards.stores = append(shards.stores, pg)
	}
	shards.log.Info("connected to PostgreSQL", zap.Int("shards", len(shards.stores)))
	return shards, nil
}

func (s *Shards) ForUser(userID string) *PostgresStorage {
	shard := ResolveShard(userID, len(s.stores))
	s.log.Debug("resolved shard", zap.String("user_id", userID), zap.Int("shard", shard))
	return s.stores[shard]
}

func (s *Shards) Len() int { return len(s.stores) }

func (s *Shards) Ping(ctx context.Context) error {
	for i, pg := range s.stores {
		if err := pg.Db.PingContext(ctx); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}

// Stats reports per-shard asset totals keyed by shard_N.
func (s *Shards) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{}
	for i, pg := range s.stores {
		st, err := pg.ShardStats(ctx)
		if err != nil {
			s.log.Warn("shard stats failed", zap.Int("shard", i), zap.Error(err))
			continue
		}
		stats[fmt.Sprintf("shard_%d", i)] = st
	}
	return stats
}

func (s *Shards) Close() error {
	var errs []error
	for _, pg := range s.stores {
		errs = append(errs, pg.Db.Close())
	}
	return errors.Join(errs...)
}

// mapError turns constraint violations into the pipeline's sentinels.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", pipeline.ErrAlreadyExists, err)
		case "23503":
			return fmt.Errorf("%w: %w", pipeline.ErrNotFound, err)
		case "22P02":
			// malformed uuid in a lookup key
			return fmt.Errorf("%w: %w", pipeline.ErrNotFound, err)
		}
	}
	return err
}
