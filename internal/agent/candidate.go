package agent

import (
	"strings"
)

const (
	resumeExcerptLimit      = 500
	projectDescriptionLimit = 200
)

// EnrichmentKind tags an enrichment payload attached to a candidate.
type EnrichmentKind string

const (
	EnrichmentGitHub      EnrichmentKind = "github"
	EnrichmentPersonality EnrichmentKind = "personality"
)

// Candidate is a single person returned by search and refined by enrichment.
type Candidate struct {
	ID               string   `json:"student_id"`
	Name             string   `json:"name"`
	Skills           []string `json:"skills,omitempty"`
	GitHubUsername   string   `json:"github_username,omitempty"`
	ResumeSimilarity float64  `json:"resume_similarity"`
	ResumeExcerpt    string   `json:"resume_text,omitempty"`

	Portfolio   *Portfolio   `json:"portfolio,omitempty"`
	Personality *Personality `json:"personality,omitempty"`

	Attempts map[EnrichmentKind]bool `json:"enrichment_attempted,omitempty"`
}

// Portfolio holds GitHub evidence for a candidate.
type Portfolio struct {
	Projects []Project        `json:"github_projects"`
	Summary  *PortfolioSummary `json:"portfolio_summary,omitempty"`
}

type Project struct {
	RepoName    string   `json:"repo_name"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics,omitempty"`
	Stars       int      `json:"stars"`
	Description string   `json:"description"`
	Similarity  float64  `json:"similarity"`
}

// PortfolioSummary is a short overview of the public GitHub account.
type PortfolioSummary struct {
	Username     string   `json:"username"`
	PublicRepos  int      `json:"public_repos"`
	Followers    int      `json:"followers"`
	TopLanguages []string `json:"top_languages,omitempty"`
	TopRepos     []string `json:"top_repos,omitempty"`
	TotalStars   int      `json:"total_stars"`
}

// Personality is the latest trait assessment stored for a candidate.
type Personality struct {
	Conscientiousness float64 `json:"conscientiousness" mapstructure:"conscientiousness"`
	Extraversion      float64 `json:"extraversion" mapstructure:"extraversion"`
	Openness          float64 `json:"openness" mapstructure:"openness"`
	Agreeableness     float64 `json:"agreeableness" mapstructure:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism" mapstructure:"neuroticism"`
	InterviewScore    float64 `json:"interview_score" mapstructure:"interview_score"`
	Summary           string  `json:"summary,omitempty" mapstructure:"summary"`
}

// MarkAttempted records that enrichment of the given kind ran for the candidate,
// whether or not it produced data.
func (c *Candidate) MarkAttempted(kind EnrichmentKind) {
	if c.Attempts == nil {
		c.Attempts = make(map[EnrichmentKind]bool)
	}
	c.Attempts[kind] = true
}

func (c *Candidate) Attempted(kind EnrichmentKind) bool {
	return c.Attempts[kind]
}

// Enriched reports whether at least one enrichment kind was attempted.
func (c *Candidate) Enriched() bool {
	for _, done := range c.Attempts {
		if done {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share slices or maps with c.
func (c *Candidate) Clone() Candidate {
	out := *c
	out.Skills = append([]string(nil), c.Skills...)
	if c.Attempts != nil {
		out.Attempts = make(map[EnrichmentKind]bool, len(c.Attempts))
		for k, v := range c.Attempts {
			out.Attempts[k] = v
		}
	}
	if c.Portfolio != nil {
		p := *c.Portfolio
		p.Projects = append([]Project(nil), c.Portfolio.Projects...)
		if c.Portfolio.Summary != nil {
			s := *c.Portfolio.Summary
			p.Summary = &s
		}
		out.Portfolio = &p
	}
	if c.Personality != nil {
		p := *c.Personality
		out.Personality = &p
	}
	return out
}

// merge folds a later occurrence of the same candidate into c.
func (c *Candidate) merge(other *Candidate) {
	if other.ResumeSimilarity > c.ResumeSimilarity {
		c.ResumeSimilarity = other.ResumeSimilarity
		if other.ResumeExcerpt != "" {
			c.ResumeExcerpt = other.ResumeExcerpt
		}
	}
	if c.Name == "" {
		c.Name = other.Name
	}
	if c.GitHubUsername == "" || c.GitHubUsername == NoGitHubUsername {
		if other.GitHubUsername != "" {
			c.GitHubUsername = other.GitHubUsername
		}
	}
	if c.ResumeExcerpt == "" {
		c.ResumeExcerpt = other.ResumeExcerpt
	}

	seen := make(map[string]struct{}, len(c.Skills))
	for _, s := range c.Skills {
		seen[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range other.Skills {
		if _, ok := seen[strings.ToLower(s)]; ok {
			continue
		}
		seen[strings.ToLower(s)] = struct{}{}
		c.Skills = append(c.Skills, s)
	}
}

// NoGitHubUsername is the placeholder profiles use when no account is linked.
const NoGitHubUsername = "N/A"

// HasGitHub reports whether the candidate links a usable GitHub account.
func (c *Candidate) HasGitHub() bool {
	u := strings.TrimSpace(c.GitHubUsername)
	return u != "" && u != NoGitHubUsername
}

// ResumeExcerptOf cuts resume text down to the excerpt kept on a candidate.
func ResumeExcerptOf(text string) string {
	return truncateRunes(strings.TrimSpace(text), resumeExcerptLimit)
}

// ProjectDescriptionOf cuts a repository description to the stored length.
func ProjectDescriptionOf(text string) string {
	return truncateRunes(strings.TrimSpace(text), projectDescriptionLimit)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// NextStep is the recommended action for a ranked candidate.
type NextStep string

const (
	NextStepInterview   NextStep = "Interview"
	NextStepPhoneScreen NextStep = "Phone Screen"
	NextStepReject      NextStep = "Reject"
	NextStepReview      NextStep = "Review"
)

// ParseNextStep maps free text onto a NextStep, defaulting to Review.
func ParseNextStep(s string) NextStep {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	switch {
	case strings.HasPrefix(norm, "interview"):
		return NextStepInterview
	case strings.HasPrefix(norm, "phone"):
		return NextStepPhoneScreen
	case strings.HasPrefix(norm, "reject"):
		return NextStepReject
	default:
		return NextStepReview
	}
}

// Assessment is what a ranking backend says about one candidate.
// ID and Index are hints for matching the entry back to a candidate.
type Assessment struct {
	ID                 string
	Index              int
	FitScore           float64
	HasScore           bool
	EvaluationBullets  []string
	NotableProjects    []string
	NextStep           NextStep
	PersonalityInsight string
}

// RankedCandidate is a candidate annotated by the ranking capability.
type RankedCandidate struct {
	Candidate
	FitScore           float64  `json:"fit_score"`
	EvaluationBullets  []string `json:"evaluation_bullets"`
	NotableProjects    []string `json:"notable_github_projects"`
	NextStep           NextStep `json:"next_step"`
	PersonalityInsight string   `json:"personality_insight,omitempty"`
	MissingData        bool     `json:"missing_data,omitempty"`
}
