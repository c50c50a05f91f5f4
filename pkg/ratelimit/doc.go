// Package ratelimit paces requests to Instagram.
//
// TokenBucket caps the number of API calls per period and is shared by the
// whole session. Jitter produces the randomised courtesy delays inserted
// between page requests and after each completed download.
//
//	limiter := ratelimit.NewTokenBucket(60, time.Minute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//
//	pause := ratelimit.Jitter{Min: 500 * time.Millisecond, Max: 2 * time.Second}
//	_ = pause.Wait(ctx)
package ratelimit
