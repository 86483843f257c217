package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/jackc/pgx/v5"
)

const (
	projectsSQL = `SELECT coalesce(repo_name, 'Unknown'), coalesce(text, ''), coalesce(metadata, '{}'::jsonb),
	1 - (embedding <=> $1::vector) AS similarity
FROM github_embeddings
WHERE student_id::text = $2
ORDER BY embedding <=> $1::vector
LIMIT $3`

	personalitySQL = `SELECT to_jsonb(pa) FROM personality_analyses pa
WHERE pa.student_id::text = $1
ORDER BY pa.created_at DESC
LIMIT 1`
)

type projectMetadata struct {
	Language string   `mapstructure:"language"`
	Topics   []string `mapstructure:"topics"`
	Stars    int      `mapstructure:"stars"`
}

// Projects returns the student's repositories closest to query by cosine
// similarity.
func (s *Store) Projects(ctx context.Context, studentID, query string, limit int) ([]agent.Project, error) {
	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, projectsSQL, vec, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("search github projects: %w", err)
	}
	defer rows.Close()

	projects := []agent.Project{}
	for rows.Next() {
		var (
			name, text string
			metadata   []byte
			similarity float64
		)
		if err := rows.Scan(&name, &text, &metadata, &similarity); err != nil {
			return nil, fmt.Errorf("scan github project: %w", err)
		}

		meta := projectMetadata{Language: "N/A"}
		if err := decodeJSONRow(metadata, &meta); err != nil {
			return nil, fmt.Errorf("decode project metadata: %w", err)
		}

		projects = append(projects, agent.Project{
			RepoName:    name,
			Language:    meta.Language,
			Topics:      meta.Topics,
			Stars:       meta.Stars,
			Description: agent.ProjectDescriptionOf(text),
			Similarity:  similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read github projects: %w", err)
	}

	return projects, nil
}

// Personality returns the most recent analysis for the student, or nil when
// there is none.
func (s *Store) Personality(ctx context.Context, studentID string) (*agent.Personality, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, personalitySQL, studentID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get personality analysis: %w", err)
	}

	var p agent.Personality
	if err := decodeJSONRow(raw, &p); err != nil {
		return nil, fmt.Errorf("decode personality analysis: %w", err)
	}
	return &p, nil
}
