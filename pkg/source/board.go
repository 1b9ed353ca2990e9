package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/observability"
)

// Board API defaults.
const (
	DefaultBoardBaseURL  = "https://api.pinterest.com"
	DefaultBoardPageSize = 250
	httpTimeout          = 10 * time.Second
)

// BoardOptions configures a BoardSource.
type BoardOptions struct {
	BaseURL  string `toml:"base_url"`
	BoardID  string `toml:"board_id"`
	Token    string `toml:"-"`
	PageSize int    `toml:"page_size"`

	// ImagePrefix and ImageRewrite replace a leading image URL prefix, for
	// serving images through a local proxy. Empty ImagePrefix disables it.
	ImagePrefix  string `toml:"image_prefix"`
	ImageRewrite string `toml:"image_rewrite"`

	// Refresh bypasses the response cache.
	Refresh bool `toml:"-"`
}

// BoardSource fetches a board's pins.
type BoardSource struct {
	opts   BoardOptions
	http   *http.Client
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// NewBoardSource returns a source for opts. A nil cache disables response
// caching; a nil logger discards output.
func NewBoardSource(opts BoardOptions, c cache.Cache, keyer cache.Keyer, logger *log.Logger) (*BoardSource, error) {
	if strings.TrimSpace(opts.BoardID) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "board id is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBoardBaseURL
	}
	if err := errors.ValidateURL(opts.BaseURL); err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultBoardPageSize
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &BoardSource{
		opts:   opts,
		http:   &http.Client{Timeout: httpTimeout},
		cache:  c,
		keyer:  keyer,
		logger: logger,
	}, nil
}

// WithHTTPClient replaces the HTTP client, for tests.
func (s *BoardSource) WithHTTPClient(c *http.Client) *BoardSource {
	s.http = c
	return s
}

// Name returns "board".
func (s *BoardSource) Name() string { return "board" }

// pin is one entry of the board pins response.
type pin struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_medium_url"`
	ImageSize   struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"image_medium_size_pixels"`
}

type pinsResponse struct {
	Data []pin `json:"data"`
}

// Load fetches the board and maps its pins to items. Entries that are not
// pins, and pins without an image size, are skipped. The caption is the trimmed title, or the trimmed
// description when the title is empty.
func (s *BoardSource) Load(ctx context.Context) ([]catalog.Item, error) {
	raw, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	var resp pinsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode board %s", s.opts.BoardID)
	}

	items := make([]catalog.Item, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.Type != "pin" {
			continue
		}
		if !(p.ImageSize.Height > 0) {
			s.logger.Debug("skipping pin without image size", "id", p.ID)
			continue
		}
		caption := strings.TrimSpace(p.Title)
		if caption == "" {
			caption = strings.TrimSpace(p.Description)
		}
		items = append(items, catalog.Item{
			ID:            p.ID,
			Caption:       caption,
			NaturalWidth:  p.ImageSize.Width,
			NaturalHeight: p.ImageSize.Height,
			ImageURL:      s.rewrite(p.ImageURL),
		})
	}
	s.logger.Debug("board loaded", "board", s.opts.BoardID, "entries", len(resp.Data), "pins", len(items))
	return catalog.Normalize(items), nil
}

func (s *BoardSource) rewrite(u string) string {
	if s.opts.ImagePrefix == "" || !strings.HasPrefix(u, s.opts.ImagePrefix) {
		return u
	}
	return s.opts.ImageRewrite + strings.TrimPrefix(u, s.opts.ImagePrefix)
}

func (s *BoardSource) endpoint() string {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(s.opts.PageSize))
	return fmt.Sprintf("%s/v3/boards/%s/pins/?%s",
		strings.TrimSuffix(s.opts.BaseURL, "/"), url.PathEscape(s.opts.BoardID), q.Encode())
}

// fetch returns the raw response body, from cache when possible.
func (s *BoardSource) fetch(ctx context.Context) ([]byte, error) {
	key := s.keyer.HTTPKey("board", s.opts.BoardID+":"+strconv.Itoa(s.opts.PageSize))
	if !s.opts.Refresh {
		if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "http")
			s.logger.Debug("board cache hit", "board", s.opts.BoardID)
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}

	var body []byte
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		body, err = s.get(ctx, s.endpoint())
		return err
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, errors.ErrCodeNotFound):
			return nil, err
		default:
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch board %s", s.opts.BoardID)
		}
	}

	if err := s.cache.Set(ctx, key, body, cache.TTLHTTP); err == nil {
		observability.Cache().OnCacheSet(ctx, "http", len(body))
	}
	return body, nil
}

func (s *BoardSource) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := s.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeNotFound, cache.ErrNotFound, "board not found")
	case code == http.StatusTooManyRequests || code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", cache.ErrNetwork, code)
	}
}
