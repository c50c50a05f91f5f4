package scraper

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	errs "igdl/pkg/errors"
	"igdl/pkg/models"
)

// Summary tallies the outcome of a run
type Summary struct {
	Target     string
	Found      int
	Dropped    int
	Downloaded int
	Skipped    int
	Failed     int
	Results    []models.DownloadResult
	Elapsed    time.Duration
}

func newSummary(target string) *Summary {
	return &Summary{Target: target}
}

// add records one result
func (s *Summary) add(r models.DownloadResult) {
	s.Results = append(s.Results, r)
	s.tally()
}

func (s *Summary) tally() {
	s.Found = len(s.Results)
	s.Skipped = lo.CountBy(s.Results, func(r models.DownloadResult) bool { return r.Success && r.Skipped })
	s.Downloaded = lo.CountBy(s.Results, func(r models.DownloadResult) bool { return r.Success && !r.Skipped })
	s.Failed = lo.CountBy(s.Results, func(r models.DownloadResult) bool { return !r.Success })
}

// Succeeded counts items that are on disk, whether fetched now or skipped
func (s *Summary) Succeeded() int {
	return s.Downloaded + s.Skipped
}

// Paths lists the files of successful results in completion order
func (s *Summary) Paths() []string {
	return lo.FilterMap(s.Results, func(r models.DownloadResult, _ int) (string, bool) {
		return r.Path, r.Success
	})
}

// Failures returns the failed results
func (s *Summary) Failures() []models.DownloadResult {
	return lo.Filter(s.Results, func(r models.DownloadResult, _ int) bool { return !r.Success })
}

// Err reports a PartialBatchFailure when some but not all items failed
func (s *Summary) Err() error {
	if s.Failed == 0 || s.Succeeded() == 0 {
		return nil
	}
	return errs.New(errs.ErrorTypePartialBatch, "%d of %d items failed", s.Failed, s.Found)
}

// String renders the one-line found/downloaded summary
func (s *Summary) String() string {
	return fmt.Sprintf("found %d, downloaded %d, skipped %d, failed %d", s.Found, s.Downloaded, s.Skipped, s.Failed)
}
