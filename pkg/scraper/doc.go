// Package scraper orchestrates a complete download: login, resolving the
// target, paging through its media and handing items to the downloader.
//
// A Scraper is built from a config.Config. Each run gets its own
// instagram.Session, so concurrent runs never share cookies.
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//		return err
//	}
//	task := s.Start(ctx, scraper.Request{
//		URL:      "https://www.instagram.com/alice/",
//		Username: user,
//		Password: pass,
//		Profile:  true,
//	})
//	for ev := range task.Events() {
//		fmt.Println(ev.Message)
//	}
//	summary, err := task.Wait()
//
// Profiles are written to <output>/<username>/ and single posts to
// <output>/. Failed items do not stop a run; they are counted in the
// Summary and reported by Summary.Err.
package scraper
