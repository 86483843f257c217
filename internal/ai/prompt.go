package ai

import (
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
)

//go:embed decision_prompt.md
var decisionTemplate string

//go:embed rank_prompt.md
var rankTemplate string

const (
	decisionSystemPrompt = "You are a decision-making agent. Always respond with valid JSON only. No markdown, no explanation."

	rankSystemPrompt = `You are a professional recruiter. Rank candidates and provide detailed evaluations.
For each candidate provide:
1. Fit score (0-10)
2. 3 evaluation bullets with specific evidence
3. Notable GitHub projects
4. Next step (Interview/Phone Screen/Reject)
5. Personality insight (if data available)
Return ONLY valid JSON array.`

	projectPreviewRunes = 100
	promptProjects      = 3
)

func buildDecisionPrompt(view agent.StateView, specs []agent.CapabilitySpec) string {
	tools := make([]string, 0, len(specs)+1)
	for _, s := range specs {
		tools = append(tools, fmt.Sprintf("- **%s**: %s", s.Name, s.Description))
	}
	tools = append(tools, fmt.Sprintf("- **%s**: Stop the search and return the current rankings.", agent.Finish))

	history := "None yet (first iteration)"
	if len(view.RecentTrace) > 0 {
		lines := make([]string, 0, len(view.RecentTrace))
		for i, t := range view.RecentTrace {
			lines = append(lines, fmt.Sprintf("%d. %s - %s (success: %t, time: %.2fs)",
				i+1, t.Capability, t.Rationale, t.Success, t.Duration.Seconds()))
		}
		history = strings.Join(lines, "\n")
	}

	r := strings.NewReplacer(
		"{{QUERY}}", view.Query,
		"{{MIN_CANDIDATES}}", strconv.Itoa(view.MinCandidates),
		"{{MIN_FIT_SCORE}}", formatScore(view.MinFitScore),
		"{{ITERATION}}", strconv.Itoa(view.Iterations),
		"{{MAX_ITERATIONS}}", strconv.Itoa(view.MaxIterations),
		"{{CANDIDATES}}", strconv.Itoa(view.Candidates),
		"{{ENRICHED}}", strconv.Itoa(view.Enriched),
		"{{RANKED}}", strconv.Itoa(view.Ranked),
		"{{RANKINGS_CURRENT}}", strconv.FormatBool(view.RankingsCurrent),
		"{{TOP_FIT_SCORE}}", formatScore(view.TopFitScore),
		"{{GOAL_MET}}", strconv.FormatBool(view.GoalMet || view.GoalSatisfied),
		"{{HISTORY}}", history,
		"{{TOOLS}}", strings.Join(tools, "\n"),
	)
	return r.Replace(decisionTemplate)
}

func buildRankPrompt(candidates []agent.Candidate, query string) string {
	parts := make([]string, 0, len(candidates))
	for i, c := range candidates {
		parts = append(parts, describeCandidate(i+1, c))
	}

	r := strings.NewReplacer(
		"{{CANDIDATES}}", strings.Join(parts, "\n\n---\n\n"),
		"{{QUERY}}", query,
	)
	return r.Replace(rankTemplate)
}

func describeCandidate(n int, c agent.Candidate) string {
	username := agent.NoGitHubUsername
	profile := agent.NoGitHubUsername
	if c.HasGitHub() {
		username = c.GitHubUsername
		profile = "https://github.com/" + c.GitHubUsername
	}

	skills := "N/A"
	if len(c.Skills) > 0 {
		skills = strings.Join(c.Skills, ", ")
	}

	lines := []string{
		fmt.Sprintf("%d. %s (@%s) [%s]", n, c.Name, username, c.ID),
		"GitHub Profile: " + profile,
		"Skills: " + skills,
		fmt.Sprintf("Resume Match: %.2f%%", c.ResumeSimilarity*100),
	}

	if c.ResumeExcerpt != "" {
		lines = append(lines, "Resume Excerpt: "+c.ResumeExcerpt)
	}

	if c.Portfolio != nil {
		if len(c.Portfolio.Projects) > 0 {
			lines = append(lines, "Top Projects:")
			for i, p := range c.Portfolio.Projects {
				if i == promptProjects {
					break
				}
				lines = append(lines, fmt.Sprintf("  - %s: %s", p.RepoName, truncate(p.Description, projectPreviewRunes)))
			}
		}
		if s := c.Portfolio.Summary; s != nil {
			lines = append(lines, fmt.Sprintf("Portfolio: %d public repos, %d stars, languages: %s",
				s.PublicRepos, s.TotalStars, strings.Join(s.TopLanguages, ", ")))
		}
	}

	if p := c.Personality; p != nil {
		lines = append(lines, fmt.Sprintf("Personality: Conscientiousness %.2f, Extraversion %.2f, Openness %.2f, Interview Score %.2f",
			p.Conscientiousness, p.Extraversion, p.Openness, p.InterviewScore))
	}

	return strings.Join(lines, "\n")
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
