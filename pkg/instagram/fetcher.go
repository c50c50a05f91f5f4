package instagram

import (
	"context"
	"time"

	"github.com/samber/lo"

	errs "igdl/pkg/errors"
	"igdl/pkg/models"
)

// Page is one page of normalised media
type Page struct {
	Items []models.MediaItem
	// Dropped counts media entries skipped for lack of a usable URL
	Dropped int
	// NextCursor is empty when there are no further pages
	NextCursor string
}

// PageFetcher fetches a single page of a user's media. An empty cursor asks
// for the first page.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// PrivateFeed pages through /api/v1/feed/user/<id>/
type PrivateFeed struct {
	session  *Session
	userID   string
	pageSize int
}

// NewPrivateFeed creates a feed fetcher; pageSize <= 0 uses 12
func NewPrivateFeed(s *Session, userID string, pageSize int) *PrivateFeed {
	return &PrivateFeed{
		session:  s,
		userID:   userID,
		pageSize: clampPageSize(pageSize, DefaultFeedPageSize),
	}
}

// FetchPage implements PageFetcher
func (f *PrivateFeed) FetchPage(ctx context.Context, cursor string) (Page, error) {
	var resp feedResponse
	u := FeedURL(f.session.baseURL, f.userID, f.pageSize, cursor)
	if err := f.session.getJSON(ctx, u, apiHeaders(""), &resp); err != nil {
		return Page{}, err
	}
	if resp.Items == nil && resp.Status != "" && resp.Status != "ok" {
		return Page{}, errs.New(errs.ErrorTypeParsing, "feed returned status %q", resp.Status)
	}

	page := normalizeFeed(resp.Items)
	if resp.MoreAvailable {
		page.NextCursor = string(resp.NextMaxID)
	}
	return page, nil
}

// LegacyGraphQL pages through the timeline GraphQL query
type LegacyGraphQL struct {
	session   *Session
	userID    string
	pageSize  int
	queryHash string
}

// GraphQLOption configures a LegacyGraphQL fetcher
type GraphQLOption func(*LegacyGraphQL)

// WithQueryHash selects another query hash, e.g. AltMediaQueryHash
func WithQueryHash(hash string) GraphQLOption {
	return func(g *LegacyGraphQL) {
		if hash != "" {
			g.queryHash = hash
		}
	}
}

// NewLegacyGraphQL creates a GraphQL fetcher; pageSize <= 0 uses 50
func NewLegacyGraphQL(s *Session, userID string, pageSize int, opts ...GraphQLOption) *LegacyGraphQL {
	g := &LegacyGraphQL{
		session:   s,
		userID:    userID,
		pageSize:  clampPageSize(pageSize, DefaultGraphQLPageSize),
		queryHash: MediaQueryHash,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchPage implements PageFetcher
func (g *LegacyGraphQL) FetchPage(ctx context.Context, cursor string) (Page, error) {
	var resp graphqlResponse
	u := GraphQLURL(g.session.baseURL, g.queryHash, g.userID, g.pageSize, cursor)
	if err := g.session.getJSON(ctx, u, apiHeaders(""), &resp); err != nil {
		return Page{}, err
	}
	if resp.Data.User == nil {
		return Page{}, errs.New(errs.ErrorTypeNotFound, "no timeline for user %s", g.userID)
	}

	media := resp.Data.User.Media
	page := normalizeGraph(lo.Map(media.Edges, func(e graphEdge, _ int) graphNode { return e.Node }))
	if media.PageInfo.HasNextPage {
		page.NextCursor = media.PageInfo.EndCursor
	}
	return page, nil
}

// NewFetcher returns the fetcher family selected by name ("feed" or "graphql").
// opts only apply to the graphql family.
func NewFetcher(kind string, s *Session, userID string, pageSize int, opts ...GraphQLOption) PageFetcher {
	if kind == "graphql" {
		return NewLegacyGraphQL(s, userID, pageSize, opts...)
	}
	return NewPrivateFeed(s, userID, pageSize)
}

// Normalisation

// resolve returns the media URL and whether it is a video. Videos use
// video_versions[0]; images use the first (richest) candidate.
func (it feedItem) resolve() (string, bool) {
	isVideo := it.MediaType == 2 || len(it.VideoVersions) > 0
	if isVideo {
		if len(it.VideoVersions) > 0 {
			return it.VideoVersions[0].URL, true
		}
		return "", true
	}
	if it.ImageVersions2 != nil && len(it.ImageVersions2.Candidates) > 0 {
		return it.ImageVersions2.Candidates[0].URL, false
	}
	return "", false
}

func (it feedItem) caption() string {
	if it.Caption == nil {
		return ""
	}
	return it.Caption.Text
}

func normalizeFeed(raw []feedItem) Page {
	var page Page
	for _, it := range raw {
		items, dropped := normalizeFeedItem(it)
		page.Items = append(page.Items, items...)
		page.Dropped += dropped
	}
	return page
}

// normalizeFeedItem expands one post; carousel children get Index 1..K
func normalizeFeedItem(it feedItem) ([]models.MediaItem, int) {
	parent := models.MediaItem{
		Shortcode:  it.Code,
		CapturedAt: time.Unix(it.TakenAt, 0).UTC(),
		Caption:    it.caption(),
	}

	if len(it.CarouselMedia) == 0 {
		return expand(parent, false, []resolved{resolvedFrom(it.resolve())})
	}

	return expand(parent, true, lo.Map(it.CarouselMedia, func(child feedItem, _ int) resolved {
		return resolvedFrom(child.resolve())
	}))
}

func (n graphNode) resolve() (string, bool) {
	if n.IsVideo {
		return n.VideoURL, true
	}
	if n.DisplayURL != "" {
		return n.DisplayURL, false
	}
	if len(n.DisplayResources) > 0 {
		return n.DisplayResources[len(n.DisplayResources)-1].Src, false
	}
	return "", false
}

func (n graphNode) caption() string {
	if len(n.EdgeMediaToCaption.Edges) == 0 {
		return ""
	}
	return n.EdgeMediaToCaption.Edges[0].Node.Text
}

func (n graphNode) children() []graphNode {
	if n.EdgeSidecarToChildren == nil {
		return nil
	}
	return lo.Map(n.EdgeSidecarToChildren.Edges, func(e graphEdge, _ int) graphNode { return e.Node })
}

func normalizeGraph(nodes []graphNode) Page {
	var page Page
	for _, n := range nodes {
		parent := models.MediaItem{
			Shortcode:  n.Shortcode,
			CapturedAt: time.Unix(n.TakenAtTimestamp, 0).UTC(),
			Caption:    n.caption(),
		}

		var items []models.MediaItem
		var dropped int
		if children := n.children(); n.Typename == "GraphSidecar" || len(children) > 0 {
			items, dropped = expand(parent, true, lo.Map(children, func(c graphNode, _ int) resolved {
				return resolvedFrom(c.resolve())
			}))
		} else {
			items, dropped = expand(parent, false, []resolved{resolvedFrom(n.resolve())})
		}

		page.Items = append(page.Items, items...)
		page.Dropped += dropped
	}
	return page
}

type resolved struct {
	url     string
	isVideo bool
}

func resolvedFrom(url string, isVideo bool) resolved {
	return resolved{url: url, isVideo: isVideo}
}

// expand turns one post into items. Carousel children are numbered from 1
// by their position so identities stay stable even when a sibling is dropped.
func expand(parent models.MediaItem, carousel bool, media []resolved) ([]models.MediaItem, int) {
	items := lo.FilterMap(media, func(m resolved, i int) (models.MediaItem, bool) {
		if m.url == "" || parent.Shortcode == "" {
			return models.MediaItem{}, false
		}
		item := parent
		item.URL = m.url
		item.IsVideo = m.isVideo
		if carousel {
			item.Index = i + 1
		}
		return item, true
	})
	return items, len(media) - len(items)
}
