package instagram

import (
	"bytes"
	"encoding/json"
	"strings"
)

// cursorString accepts a cursor sent either as a JSON string or a number
type cursorString string

func (c *cursorString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = cursorString(s)
		return nil
	}
	*c = cursorString(strings.TrimSpace(string(data)))
	return nil
}

// profileResponse is the web_profile_info payload
type profileResponse struct {
	Data struct {
		User *struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// Private API (feed and media info)

type feedResponse struct {
	Items         []feedItem   `json:"items"`
	MoreAvailable bool         `json:"more_available"`
	NextMaxID     cursorString `json:"next_max_id"`
	Status        string       `json:"status"`
}

type mediaInfoResponse struct {
	Items  []feedItem `json:"items"`
	Status string     `json:"status"`
}

type feedCaption struct {
	Text string `json:"text"`
}

type versionURL struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type imageVersions struct {
	Candidates []versionURL `json:"candidates"`
}

type feedItem struct {
	Code           string         `json:"code"`
	TakenAt        int64          `json:"taken_at"`
	Caption        *feedCaption   `json:"caption"`
	MediaType      int            `json:"media_type"`
	VideoVersions  []versionURL   `json:"video_versions"`
	ImageVersions2 *imageVersions `json:"image_versions2"`
	CarouselMedia  []feedItem     `json:"carousel_media"`
}

// GraphQL timeline

type graphqlResponse struct {
	Data struct {
		User *struct {
			Media timelineMedia `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

type timelineMedia struct {
	Count    int `json:"count"`
	PageInfo struct {
		HasNextPage bool   `json:"has_next_page"`
		EndCursor   string `json:"end_cursor"`
	} `json:"page_info"`
	Edges []graphEdge `json:"edges"`
}

type graphEdge struct {
	Node graphNode `json:"node"`
}

type graphNode struct {
	Typename         string `json:"__typename"`
	Shortcode        string `json:"shortcode"`
	TakenAtTimestamp int64  `json:"taken_at_timestamp"`
	IsVideo          bool   `json:"is_video"`
	VideoURL         string `json:"video_url"`
	DisplayURL       string `json:"display_url"`
	DisplayResources []struct {
		Src          string `json:"src"`
		ConfigWidth  int    `json:"config_width"`
		ConfigHeight int    `json:"config_height"`
	} `json:"display_resources"`
	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	EdgeSidecarToChildren *struct {
		Edges []graphEdge `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}
