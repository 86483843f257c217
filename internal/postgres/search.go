package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/brendankhow/IS469-G2-Group4/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	matchResumesSQL = `SELECT student_id::text, coalesce(similarity, 0), coalesce(resume_text, '')
FROM match_resumes($1::vector, $2, $3)`

	profileSQL = `SELECT to_jsonb(p) FROM profiles p WHERE p.id::text = $1`
)

type match struct {
	studentID  string
	similarity float64
	resumeText string
}

// profileRow is the subset of a profiles row the search needs. Name columns
// differ between deployments, so several are tried in order.
type profileRow struct {
	Name           string `mapstructure:"name"`
	FullName       string `mapstructure:"full_name"`
	StudentName    string `mapstructure:"student_name"`
	DisplayName    string `mapstructure:"display_name"`
	Skills         any    `mapstructure:"skills"`
	GitHubUsername string `mapstructure:"github_username"`
}

// Search returns candidates whose resumes are most similar to query. Matches
// without a profile are skipped.
func (s *Store) Search(ctx context.Context, query string, limit int, threshold float64) ([]agent.Candidate, error) {
	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.matchResumes(ctx, vec, limit, threshold)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(matches))
	candidates := make([]agent.Candidate, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.studentID]; dup {
			continue
		}
		seen[m.studentID] = struct{}{}

		profile, err := s.profile(ctx, m.studentID)
		if err != nil {
			s.logger.Warn("skipping match without usable profile",
				zap.String(logger.FieldCandidate, m.studentID),
				zap.Error(err),
			)
			continue
		}

		candidates = append(candidates, agent.Candidate{
			ID:               m.studentID,
			Name:             profile.displayName(m.studentID),
			Skills:           skillList(profile.Skills),
			GitHubUsername:   githubUsername(profile.GitHubUsername),
			ResumeSimilarity: m.similarity,
			ResumeExcerpt:    agent.ResumeExcerptOf(m.resumeText),
		})
	}

	return candidates, nil
}

func (s *Store) matchResumes(ctx context.Context, vec string, limit int, threshold float64) ([]match, error) {
	rows, err := s.db.Query(ctx, matchResumesSQL, vec, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("match resumes: %w", err)
	}
	defer rows.Close()

	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(&m.studentID, &m.similarity, &m.resumeText); err != nil {
			return nil, fmt.Errorf("scan resume match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read resume matches: %w", err)
	}
	return matches, nil
}

var errProfileNotFound = errors.New("profile not found")

func (s *Store) profile(ctx context.Context, studentID string) (*profileRow, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, profileSQL, studentID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var row profileRow
	if err := decodeJSONRow(raw, &row); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &row, nil
}

func (p *profileRow) displayName(studentID string) string {
	for _, name := range []string{p.Name, p.FullName, p.StudentName, p.DisplayName} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	prefix := studentID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "Student " + prefix
}

// decodeJSONRow unmarshals a to_jsonb row and copies it into out. Numeric and
// text columns are coerced where needed.
func decodeJSONRow(raw []byte, out any) error {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// skillList accepts skills stored as text ("go, sql"), a text array or JSON.
func skillList(v any) []string {
	var parts []string
	switch val := v.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != agent.NoGitHubUsername {
			out = append(out, p)
		}
	}
	return out
}

func githubUsername(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return agent.NoGitHubUsername
	}
	return s
}
