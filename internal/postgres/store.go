// Package postgres reads candidate data from a pgvector enabled database:
// resume matches, profiles, GitHub project embeddings and personality
// analyses.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Embedder turns query text into the vector space of the stored embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store serves every candidate data lookup from one connection pool.
type Store struct {
	db       querier
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *zap.Logger

	mu        sync.Mutex
	lastQuery string
	lastVec   string
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string, embedder Embedder, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := newStore(pool, embedder, logger)
	s.pool = pool
	return s, nil
}

func newStore(db querier, embedder Embedder, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// queryVector embeds text and renders it as a pgvector literal. The last
// query is cached since every enrichment lookup of a run embeds the same text.
func (s *Store) queryVector(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.lastQuery == text && s.lastVec != "" {
		vec := s.lastVec
		s.mu.Unlock()
		return vec, nil
	}
	s.mu.Unlock()

	if s.embedder == nil {
		return "", errors.New("embedder is not configured")
	}
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	vec := vectorLiteral(embedding)

	s.mu.Lock()
	s.lastQuery, s.lastVec = text, vec
	s.mu.Unlock()

	return vec, nil
}

func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 8)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
