package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"

	errs "igdl/pkg/errors"
	"igdl/pkg/logger"
	"igdl/pkg/ratelimit"
	"igdl/pkg/retry"
)

// DefaultUserAgent is sent unless overridden with WithUserAgent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Session is an HTTP session against Instagram. Default headers change only
// inside Authenticate; at most one authentication runs at a time.
type Session struct {
	client  *http.Client
	jar     http.CookieJar
	baseURL string

	headersMu sync.RWMutex
	headers   map[string]string

	authMu        sync.Mutex
	authenticated atomic.Bool

	limiter ratelimit.Limiter
	retry   *retry.Policy
	logger  logger.Logger
	now     func() time.Time
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithBaseURL points the session at another host, e.g. an httptest server
func WithBaseURL(base string) SessionOption {
	return func(s *Session) { s.baseURL = strings.TrimRight(base, "/") }
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.client.Timeout = d }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) SessionOption {
	return func(s *Session) {
		if ua != "" {
			s.headers["User-Agent"] = ua
		}
	}
}

// WithLogger sets the session logger
func WithLogger(l logger.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithRetryPolicy sets the retry policy used for API calls
func WithRetryPolicy(p *retry.Policy) SessionOption {
	return func(s *Session) { s.retry = p }
}

// WithRateLimiter sets the limiter consulted before every API call
func WithRateLimiter(l ratelimit.Limiter) SessionOption {
	return func(s *Session) { s.limiter = l }
}

// WithTransport replaces the HTTP transport
func WithTransport(rt http.RoundTripper) SessionOption {
	return func(s *Session) { s.client.Transport = rt }
}

// NewSession creates an unauthenticated session
func NewSession(opts ...SessionOption) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	s := &Session{
		client:  &http.Client{Jar: jar, Timeout: 30 * time.Second},
		jar:     jar,
		baseURL: BaseURL,
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
			"Sec-Fetch-Dest":  "document",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
			"Sec-Fetch-User":  "?1",
		},
		limiter: ratelimit.PerMinute(60),
		retry:   retry.DefaultPolicy(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}

	return s, nil
}

// BaseURL returns the host the session talks to
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Authenticated reports the outcome of the last Authenticate call
func (s *Session) Authenticated() bool {
	return s.authenticated.Load()
}

// Header returns the current value of a default header
func (s *Session) Header(key string) string {
	s.headersMu.RLock()
	defer s.headersMu.RUnlock()
	return s.headers[key]
}

func (s *Session) setHeader(key, value string) {
	s.headersMu.Lock()
	defer s.headersMu.Unlock()
	s.headers[key] = value
}

// Cookie returns the named cookie for the base URL, or ""
func (s *Session) Cookie(name string) string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return ""
	}
	for _, c := range s.jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (s *Session) newRequest(ctx context.Context, method, rawURL string, body io.Reader, extra map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}

	s.headersMu.RLock()
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	s.headersMu.RUnlock()

	for k, v := range extra {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do sends req once and maps transport failures to network errors
func (s *Session) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
	}

	s.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// apiHeaders are sent with every JSON API call
func apiHeaders(referer string) map[string]string {
	h := map[string]string{
		"X-IG-App-ID":      AppID,
		"X-ASBD-ID":        "198387",
		"X-IG-WWW-Claim":   "0",
		"X-Requested-With": "XMLHttpRequest",
		"Accept":           "*/*",
		"Sec-Fetch-Site":   "same-origin",
		"Sec-Fetch-Mode":   "cors",
		"Sec-Fetch-Dest":   "empty",
	}
	if referer != "" {
		h["Referer"] = referer
	}
	return h
}

// getJSON performs a rate-limited, retried GET against an API endpoint and
// decodes the body into target.
func (s *Session) getJSON(ctx context.Context, rawURL string, extra map[string]string, target interface{}) error {
	return s.retry.Do(ctx, func(ctx context.Context) error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := s.newRequest(ctx, http.MethodGet, rawURL, nil, extra)
		if err != nil {
			return err
		}
		if csrf := s.Cookie("csrftoken"); csrf != "" {
			req.Header.Set("X-CSRFToken", csrf)
		}

		resp, err := s.do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if apiErr := errs.FromStatus(resp.StatusCode, rawURL); apiErr != nil {
			return apiErr
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
		}

		if err := json.Unmarshal(body, target); err != nil {
			preview := string(body)
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			s.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
				"url":          rawURL,
				"error":        err.Error(),
				"body_preview": preview,
			})
			return errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse JSON")
		}
		return nil
	})
}

// Open starts a GET for a media URL and returns the response body. The
// caller closes it. Status errors never carry the auth or not-found kinds.
func (s *Session) Open(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, http.MethodGet, mediaURL, nil, map[string]string{
		"Accept":         "image/avif,image/webp,video/*,*/*;q=0.8",
		"Sec-Fetch-Dest": "image",
		"Sec-Fetch-Mode": "no-cors",
		"Sec-Fetch-Site": "cross-site",
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}

	if apiErr := errs.FromMediaStatus(resp.StatusCode, mediaURL); apiErr != nil {
		resp.Body.Close()
		return nil, apiErr
	}
	return resp.Body, nil
}
