package instagram

import (
	"context"

	errs "igdl/pkg/errors"
)

// ResolveUserID looks up the numeric user id for username. Missing
// profiles and unusable responses are reported as ProfileNotFound.
func (s *Session) ResolveUserID(ctx context.Context, username string) (string, error) {
	var resp profileResponse
	referer := GetUserProfileURL(username)

	err := s.getJSON(ctx, ProfileInfoURL(s.baseURL, username), apiHeaders(referer), &resp)
	switch {
	case errs.IsType(err, errs.ErrorTypeNotFound):
		return "", errs.New(errs.ErrorTypeNotFound, "profile %s not found", username)
	case errs.IsType(err, errs.ErrorTypeParsing):
		return "", errs.Wrap(errs.ErrorTypeNotFound, err, "profile "+username+" returned an unreadable response")
	case err != nil:
		return "", err
	}

	if resp.Data.User == nil || resp.Data.User.ID == "" {
		return "", errs.New(errs.ErrorTypeNotFound, "no user data for %s", username)
	}

	s.logger.DebugWithFields("resolved user id", map[string]interface{}{
		"username": username,
		"user_id":  resp.Data.User.ID,
	})
	return resp.Data.User.ID, nil
}
