package instagram

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	errs "igdl/pkg/errors"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// AppID is the web client's X-IG-App-ID
	AppID = "936619743392459"

	LoginPageEndpoint = "/accounts/login/"
	LoginEndpoint     = "/api/v1/web/accounts/login/ajax/"
	ProfileEndpoint   = "/api/v1/users/web_profile_info/"
	FeedEndpoint      = "/api/v1/feed/user/%s/"
	MediaInfoEndpoint = "/api/v1/media/%s/info/"
	GraphQLEndpoint   = "/graphql/query/"

	// MediaQueryHash is the timeline query hash
	MediaQueryHash = "e769aa130647d2354c40ea6a439bfc08"
	// AltMediaQueryHash is an older timeline query hash still answered by some edges
	AltMediaQueryHash = "69cba40317214236af40e7efa697781d"

	DefaultFeedPageSize    = 12
	DefaultGraphQLPageSize = 50
	MaxPageSize            = 50
)

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var (
	profilePattern   = regexp.MustCompile(`instagram\.com/([^/?#]+)`)
	shortcodePattern = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([^/?#]+)`)

	reservedSegments = map[string]bool{
		"p": true, "reel": true, "reels": true, "tv": true, "stories": true, "explore": true,
	}
)

// ResolveUsername extracts the username from a profile URL. A bare username
// is accepted as-is.
func ResolveUsername(profileURL string) (string, error) {
	trimmed := strings.TrimSpace(profileURL)
	if !strings.Contains(trimmed, "instagram.com") {
		name := SanitizeUsername(trimmed)
		if IsValidUsername(name) {
			return name, nil
		}
		return "", errs.New(errs.ErrorTypeNotFound, "not a profile URL: %q", profileURL)
	}

	m := profilePattern.FindStringSubmatch(trimmed)
	if m == nil || reservedSegments[strings.ToLower(m[1])] {
		return "", errs.New(errs.ErrorTypeNotFound, "not a profile URL: %q", profileURL)
	}

	name := SanitizeUsername(m[1])
	if !IsValidUsername(name) {
		return "", errs.New(errs.ErrorTypeNotFound, "invalid username %q", name)
	}
	return name, nil
}

// ResolveShortcode extracts the post shortcode from a /p/, /reel/ or /tv/ URL
func ResolveShortcode(postURL string) (string, error) {
	m := shortcodePattern.FindStringSubmatch(postURL)
	if m == nil || m[1] == "" {
		return "", errs.New(errs.ErrorTypeNotFound, "not a post URL: %q", postURL)
	}
	return m[1], nil
}

// IsPostURL reports whether u points at a single post, reel or IGTV video
func IsPostURL(u string) bool {
	return shortcodePattern.MatchString(u)
}

// ShortcodeToMediaID decodes a shortcode into the numeric media id
func ShortcodeToMediaID(shortcode string) (string, error) {
	if shortcode == "" {
		return "", errs.New(errs.ErrorTypeNotFound, "empty shortcode")
	}
	// private posts append extra characters after the first 11
	if len(shortcode) > 11 {
		shortcode = shortcode[:11]
	}

	id := new(big.Int)
	base := big.NewInt(64)
	for _, ch := range shortcode {
		idx := strings.IndexRune(shortcodeAlphabet, ch)
		if idx < 0 {
			return "", errs.New(errs.ErrorTypeNotFound, "invalid shortcode %q", shortcode)
		}
		id.Mul(id, base)
		id.Add(id, big.NewInt(int64(idx)))
	}
	return id.String(), nil
}

// ProfileInfoURL builds the web_profile_info URL
func ProfileInfoURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

// FeedURL builds a private feed page URL
func FeedURL(base, userID string, count int, maxID string) string {
	params := url.Values{}
	params.Set("count", fmt.Sprint(clampPageSize(count, DefaultFeedPageSize)))
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	return fmt.Sprintf("%s%s?%s", base, fmt.Sprintf(FeedEndpoint, userID), params.Encode())
}

// GraphQLURL builds a timeline GraphQL page URL
func GraphQLURL(base, queryHash, userID string, first int, after string) string {
	vars, _ := json.Marshal(struct {
		ID    string `json:"id"`
		First int    `json:"first"`
		After string `json:"after,omitempty"`
	}{userID, clampPageSize(first, DefaultGraphQLPageSize), after})

	params := url.Values{}
	params.Set("query_hash", queryHash)
	params.Set("variables", string(vars))
	return fmt.Sprintf("%s%s?%s", base, GraphQLEndpoint, params.Encode())
}

// MediaInfoURL builds the single-media info URL
func MediaInfoURL(base, mediaID string) string {
	return base + fmt.Sprintf(MediaInfoEndpoint, mediaID)
}

// GetPostURL constructs the public URL for a post
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

func clampPageSize(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return strings.TrimRight(username, "/ ")
}
