package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, -0.25}, nil
}

// fakeRows implements the parts of pgx.Rows the store uses.
type fakeRows struct {
	pgx.Rows
	values [][]any
	pos    int
	err    error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.values[r.pos-1]) }
func (r *fakeRows) Err() error             { return r.err }
func (r *fakeRows) Close()                 {}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(values[i]))
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	mu       sync.Mutex
	calls    []call
	rows     map[string]*fakeRows
	queryErr error
	// single rows keyed by the first argument
	single map[string]fakeRow
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	for prefix, rows := range f.rows {
		if strings.Contains(sql, prefix) {
			return rows, nil
		}
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{sql: sql, args: args})
	key := fmt.Sprint(args[0])
	if row, ok := f.single[key]; ok {
		return row
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func TestSearch(t *testing.T) {
	db := &fakeDB{
		rows: map[string]*fakeRows{
			"match_resumes": {values: [][]any{
				{"1234567890ab", 0.91, "Built Go services " + strings.Repeat("x", 600)},
				{"1234567890ab", 0.80, "duplicate"},
				{"missing", 0.70, ""},
				{"s3", 0.60, "python"},
			}},
		},
		single: map[string]fakeRow{
			"1234567890ab": {values: []any{[]byte(`{"id":"1234567890ab","full_name":"Ada Lovelace","skills":"Go, SQL, ","github_username":"ada"}`)}},
			"s3":           {values: []any{[]byte(`{"id":"s3","skills":["python"],"github_username":null}`)}},
		},
	}
	embedder := &fakeEmbedder{}
	store := newStore(db, embedder, nil)

	got, err := store.Search(context.Background(), "go developer", 10, 0.2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Ada Lovelace", got[0].Name)
	assert.Equal(t, []string{"Go", "SQL"}, got[0].Skills)
	assert.Equal(t, "ada", got[0].GitHubUsername)
	assert.InDelta(t, 0.91, got[0].ResumeSimilarity, 1e-9)
	assert.Len(t, []rune(got[0].ResumeExcerpt), 500)

	assert.Equal(t, "Student s3", got[1].Name)
	assert.Equal(t, agent.NoGitHubUsername, got[1].GitHubUsername)
	assert.False(t, got[1].HasGitHub())

	assert.Equal(t, []any{"[0.5,-0.25]", 10, 0.2}, db.calls[0].args)
}

func TestSearchErrors(t *testing.T) {
	store := newStore(&fakeDB{}, &fakeEmbedder{err: errors.New("ollama down")}, nil)
	_, err := store.Search(context.Background(), "q", 5, 0)
	assert.Error(t, err)

	store = newStore(&fakeDB{queryErr: errors.New("relation does not exist")}, &fakeEmbedder{}, nil)
	_, err = store.Search(context.Background(), "q", 5, 0)
	assert.Error(t, err)

	store = newStore(&fakeDB{}, nil, nil)
	_, err = store.Search(context.Background(), "q", 5, 0)
	assert.Error(t, err)
}

func TestProjectsReusesQueryEmbedding(t *testing.T) {
	db := &fakeDB{rows: map[string]*fakeRows{
		"github_embeddings": {values: [][]any{
			{"api", strings.Repeat("d", 300), []byte(`{"language":"Go","topics":["grpc"],"stars":"12"}`), 0.8},
			{"notes", "", []byte(`{}`), 0.1},
		}},
	}}
	embedder := &fakeEmbedder{}
	store := newStore(db, embedder, nil)

	got, err := store.Projects(context.Background(), "s1", "go developer", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Go", got[0].Language)
	assert.Equal(t, []string{"grpc"}, got[0].Topics)
	assert.Equal(t, 12, got[0].Stars)
	assert.Len(t, got[0].Description, 200)
	assert.Equal(t, "N/A", got[1].Language)

	_, err = store.Projects(context.Background(), "s2", "go developer", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, []any{"[0.5,-0.25]", "s1", 3}, db.calls[0].args)
}

func TestPersonality(t *testing.T) {
	db := &fakeDB{single: map[string]fakeRow{
		"s1": {values: []any{[]byte(`{"student_id":"s1","openness":0.8,"conscientiousness":"0.6","interview_score":7,"summary":"calm","created_at":"2024-01-01"}`)}},
		"s2": {err: errors.New("connection reset")},
	}}
	store := newStore(db, nil, nil)

	got, err := store.Personality(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.8, got.Openness, 1e-9)
	assert.InDelta(t, 0.6, got.Conscientiousness, 1e-9)
	assert.InDelta(t, 7, got.InterviewScore, 1e-9)
	assert.Equal(t, "calm", got.Summary)

	got, err = store.Personality(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.Personality(context.Background(), "s2")
	assert.Error(t, err)
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[1,0.5]", vectorLiteral([]float32{1, 0.5}))
}
