package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"go.uber.org/zap"
)

var ErrEmptyUsername = errors.New("github username is empty")

type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
}

type Repo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stargazers_count"`
	Fork        bool     `json:"fork"`
}

func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.getJSON(ctx, c.APIURL+"/users/"+url.PathEscape(username), nil, &user); err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &user, nil
}

// GetRepos returns the public repositories of a user from all pages, up to a
// fixed page limit.
func (c *Client) GetRepos(ctx context.Context, username string) ([]Repo, error) {
	var repos []Repo
	endpoint := c.APIURL + "/users/" + url.PathEscape(username) + "/repos"

	for page := 1; page <= maxPages; page++ {
		var batch []Repo
		if err := c.getJSON(ctx, endpoint, pageQuery(page), &batch); err != nil {
			return nil, fmt.Errorf("get repos of %s: %w", username, err)
		}
		repos = append(repos, batch...)

		if len(batch) < perPage {
			break
		}
		c.logger.Debug("additional request needed", zap.String("username", username), zap.Int("next_page", page+1))
	}

	return repos, nil
}

// Summary builds a short overview of a public account: counts, the most used
// languages and the most starred own repositories.
func (c *Client) Summary(ctx context.Context, username string) (*agent.PortfolioSummary, error) {
	username = strings.TrimSpace(username)
	if username == "" || username == agent.NoGitHubUsername {
		return nil, ErrEmptyUsername
	}

	user, err := c.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	repos, err := c.GetRepos(ctx, username)
	if err != nil {
		return nil, err
	}

	return summarize(user, repos), nil
}

func summarize(user *User, repos []Repo) *agent.PortfolioSummary {
	summary := &agent.PortfolioSummary{
		Username:    user.Login,
		PublicRepos: user.PublicRepos,
		Followers:   user.Followers,
	}

	languages := make(map[string]int)
	own := make([]Repo, 0, len(repos))
	for _, r := range repos {
		if r.Fork {
			continue
		}
		own = append(own, r)
		summary.TotalStars += r.Stars
		if r.Language != "" {
			languages[r.Language]++
		}
	}

	langs := make([]string, 0, len(languages))
	for l := range languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if languages[langs[i]] != languages[langs[j]] {
			return languages[langs[i]] > languages[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) > topLanguages {
		langs = langs[:topLanguages]
	}
	summary.TopLanguages = langs

	sort.SliceStable(own, func(i, j int) bool { return own[i].Stars > own[j].Stars })
	for i, r := range own {
		if i == topRepos {
			break
		}
		summary.TopRepos = append(summary.TopRepos, r.Name)
	}

	return summary
}
