package report

import (
	"fmt"
	"strconv"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

// SeverityCounts buckets CVSSv3 scores into the usual severity bands.
type SeverityCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
	None     int
}

func (s *SeverityCounts) Add(score float64) {
	switch {
	case score >= 9.0:
		s.Critical++
	case score >= 7.0:
		s.High++
	case score >= 4.0:
		s.Medium++
	case score >= 0.1:
		s.Low++
	default:
		s.None++
	}
}

func (s SeverityCounts) Total() int {
	return s.Critical + s.High + s.Medium + s.Low + s.None
}

// StatusCounts counts issues per resolution status. Unknown counts packages
// without any issue at all, not issues.
type StatusCounts struct {
	Patched   int
	Unpatched int
	Ignored   int
	Unknown   int
}

// Summary is the whole-report statistic block rendered at the top of an
// exported report.
type Summary struct {
	Report              cvecheck.CVEReport
	Status              StatusCounts
	UnpatchedBySeverity SeverityCounts
	AllBySeverity       SeverityCounts
}

// Summarize walks every issue of a report. Issues whose vulnerability
// reference is unresolved carry no score or status context and are skipped.
func Summarize(st *store.Store, reportName string) (*Summary, error) {
	full, err := st.GetFullReport(reportName)
	if err != nil {
		return nil, fmt.Errorf("could not load report %s: %w", reportName, err)
	}

	summary := &Summary{Report: full.CVEReport}
	for _, pkg := range full.Packages {
		if len(pkg.Issues) == 0 {
			summary.Status.Unknown++
			continue
		}

		for _, issue := range pkg.Issues {
			if issue.NVD == nil {
				continue
			}

			score, err := strconv.ParseFloat(issue.NVD.ScoreV3, 64)
			if err != nil {
				score = 0
			}

			switch issue.Status {
			case cvecheck.StatusPatched:
				summary.Status.Patched++
			case cvecheck.StatusUnpatched:
				summary.Status.Unpatched++
				summary.UnpatchedBySeverity.Add(score)
			case cvecheck.StatusIgnored:
				summary.Status.Ignored++
			}

			summary.AllBySeverity.Add(score)
		}
	}

	return summary, nil
}
