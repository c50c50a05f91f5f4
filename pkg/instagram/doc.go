// Package instagram talks to Instagram's undocumented web and private APIs.
//
// A Session owns the HTTP client, cookie jar and default headers. It is
// authenticated once and then shared read-only by the resolver, the page
// fetchers and the downloader:
//
//	sess, _ := instagram.NewSession(instagram.WithLogger(log))
//	if !sess.Authenticate(ctx, user, pass) {
//	    return errors.New(errors.ErrorTypeAuth, "login rejected")
//	}
//	username, _ := instagram.ResolveUsername("https://www.instagram.com/alice/")
//	userID, _ := sess.ResolveUserID(ctx, username)
//
//	pager := instagram.NewPaginator(instagram.NewPrivateFeed(sess, userID, 0))
//	stream := pager.Stream(ctx, 50)
//	for item := range stream.Items() {
//	    ...
//	}
//
// Two page fetchers exist: PrivateFeed (/api/v1/feed/user/) and
// LegacyGraphQL (/graphql/query/). Both normalise carousel posts into one
// MediaItem per child and drop entries without a usable URL.
package instagram
