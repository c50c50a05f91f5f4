package instagram

import (
	"context"

	errs "igdl/pkg/errors"
	"igdl/pkg/models"
)

// FetchPost returns the media of a single post, reel or IGTV video along
// with the number of entries dropped for lack of a URL.
func (s *Session) FetchPost(ctx context.Context, shortcode string) ([]models.MediaItem, int, error) {
	mediaID, err := ShortcodeToMediaID(shortcode)
	if err != nil {
		return nil, 0, err
	}

	var resp mediaInfoResponse
	err = s.getJSON(ctx, MediaInfoURL(s.baseURL, mediaID), apiHeaders(GetPostURL(shortcode)), &resp)
	if errs.IsType(err, errs.ErrorTypeNotFound) {
		return nil, 0, errs.New(errs.ErrorTypeNotFound, "post %s not found", shortcode)
	}
	if err != nil {
		return nil, 0, err
	}
	if len(resp.Items) == 0 {
		return nil, 0, errs.New(errs.ErrorTypeNotFound, "post %s has no media", shortcode)
	}

	raw := resp.Items[0]
	if raw.Code == "" {
		raw.Code = shortcode
	}
	items, dropped := normalizeFeedItem(raw)
	return items, dropped, nil
}
