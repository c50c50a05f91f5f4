package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	errs "igdl/pkg/errors"
	"igdl/pkg/logger"
)

// csrfPatterns are tried in order against Set-Cookie headers plus the login page body
var csrfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"csrf_token":"(.*?)"`),
	regexp.MustCompile(`csrf_token=(.*?);`),
	regexp.MustCompile(`csrftoken=(.*?);`),
}

// MissingCSRF is sent when no token could be found anywhere
const MissingCSRF = "missing"

// EncodePassword produces the enc_password form value for the web login
func EncodePassword(password string, now time.Time) string {
	return fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", now.Unix(), password)
}

// ExtractCSRF returns the first non-empty token matched in text
func ExtractCSRF(text string) string {
	for _, re := range csrfPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 && m[1] != "" {
				return m[1]
			}
		}
	}
	return ""
}

type loginResponse struct {
	Authenticated *bool  `json:"authenticated"`
	Status        string `json:"status"`
}

// Authenticate logs in with username and password. It reports success when
// any of these hold after the login POST: authenticated is true, status is
// "ok", a userId key is present, or the jar holds a sessionid cookie.
// Network failures, 5xx and 429 are retried with the session policy; any
// other outcome is a plain false.
func (s *Session) Authenticate(ctx context.Context, username, password string) bool {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	ok, err := s.authenticate(ctx, username, password)
	s.authenticated.Store(ok)
	logger.LogAuth(s.logger, username, ok, err)
	return ok
}

func (s *Session) authenticate(ctx context.Context, username, password string) (bool, error) {
	loginPage := s.baseURL + LoginPageEndpoint

	token, err := s.fetchCSRF(ctx, loginPage)
	if err != nil {
		return false, err
	}
	if token == "" {
		token = s.Cookie("csrftoken")
	}
	if token == "" {
		s.logger.Warn("No CSRF token found, continuing with placeholder")
		token = MissingCSRF
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", EncodePassword(password, s.now()))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")
	form.Set("stopDeletionNonce", "")
	form.Set("trustedDeviceRecords", "{}")
	encoded := form.Encode()

	headers := map[string]string{
		"X-CSRFToken":      token,
		"X-Instagram-AJAX": "1",
		"X-Requested-With": "XMLHttpRequest",
		"X-IG-App-ID":      AppID,
		"Referer":          loginPage,
		"Origin":           s.baseURL,
		"Content-Type":     "application/x-www-form-urlencoded",
		"Accept":           "*/*",
	}

	var body []byte
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+LoginEndpoint, strings.NewReader(encoded), headers)
		if err != nil {
			return err
		}
		resp, err := s.do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return errs.FromStatus(resp.StatusCode, req.URL.String())
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read login response")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if !loginSucceeded(body, s.Cookie("sessionid") != "") {
		return false, nil
	}

	if fresh := s.Cookie("csrftoken"); fresh != "" {
		token = fresh
	}
	s.setHeader("X-CSRFToken", token)
	return true, nil
}

// fetchCSRF loads the login page and scans its Set-Cookie headers and body
func (s *Session) fetchCSRF(ctx context.Context, loginPage string) (string, error) {
	var token string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		req, err := s.newRequest(ctx, http.MethodGet, loginPage, nil, nil)
		if err != nil {
			return err
		}
		resp, err := s.do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return errs.FromStatus(resp.StatusCode, loginPage)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read login page")
		}

		cookies := strings.Join(resp.Header.Values("Set-Cookie"), ", ")
		token = ExtractCSRF(cookies + string(body))
		return nil
	})
	return token, err
}

func loginSucceeded(body []byte, hasSessionCookie bool) bool {
	if hasSessionCookie {
		return true
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	if _, ok := raw["userId"]; ok {
		return true
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return false
	}
	return (lr.Authenticated != nil && *lr.Authenticated) || lr.Status == "ok"
}
