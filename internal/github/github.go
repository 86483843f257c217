package github

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL     = "https://api.github.com"
	userAgent  = "talentscout (candidate portfolio lookup)"
	apiVersion = "2022-11-28"
	// Max value for repos per page.
	perPage  = 100
	maxPages = 5

	topLanguages = 3
	topRepos     = 3
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client. An empty token uses unauthenticated requests, which
// GitHub rate limits much harder.
func New(logger *zap.Logger, token string, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}
