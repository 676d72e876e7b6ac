package importer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

// NVDFeed pulls the NVD change feed for the given period and merges it into
// the reference data, the same way ImportCVEDB merges a database file. All
// pages of the feed are fetched first, then written in one transaction.
func NVDFeed(
	st *store.Store,
	config cvecheck.Config,
	nvdApi *APIv2,
	period time.Duration,
) error {
	rewriters, err := compileRewriters(config)
	if err != nil {
		return err
	}
	slog.Info("Importing NVD change feed", "period", period)

	end := time.Now().UTC()
	start := end.Add(-period)
	slog.Info("Requesting CVEs", "starttime", start, "endtime", end)

	items := []Vulnerability{}
	startIndex := 0
	for {
		resp, err := nvdApi.GetCVEs(
			NoRejected(),
			LastModStart(start),
			LastModEnd(end),
			StartIndex(startIndex),
		)
		if err != nil {
			return fmt.Errorf("could not get nvd change feed: %w", err)
		}
		items = append(items, resp.Vulnerabilities...)

		startIndex += len(resp.Vulnerabilities)
		if len(resp.Vulnerabilities) == 0 || startIndex >= resp.TotalResults {
			break
		}
	}
	slog.Info("Finished requesting CVEs", "results", len(items))

	return st.Transaction(func(tx *store.Store) error {
		for _, item := range items {
			err := ProcessNVDCveItem(tx, rewriters, item)
			if err != nil {
				slog.Error("could not process item", "item", item.CVE.ID, "err", err)
			}
		}
		return nil
	})
}

func ProcessNVDCveItem(
	tx *store.Store,
	rewriters []compiledRewriter,
	item Vulnerability,
) error {
	description := item.CVE.Descriptions.SelectLang("en")
	if description.IsNone() {
		return nil
	}

	slog.Debug("Processing vulnerability", "cve", item.CVE.ID)

	record := cvecheck.NVDRecord{
		ID:       item.CVE.ID,
		Modified: parseNVDTime(item.CVE.LastModified),
	}
	description.IfSome(func(v Description) {
		record.Summary = v.Value
	})

	impact := item.CVE.Metrics.CvssMetricV31.
		SelectByType("Primary").
		Or(OptionalFirst(item.CVE.Metrics.CvssMetricV31))
	impact.IfSome(func(v CvssMetricV31) {
		record.VectorString = v.CvssData.VectorString
		record.Vector = v.CvssData.AttackVector

		score, err := v.CvssData.BaseScore.Float64()
		if err == nil {
			record.ScoreV3 = FormatScore(score)
		}
		if record.Vector == "" || record.ScoreV3 == "" {
			derivedScore, derivedVector, err := ParseCVSS3Vector(v.CvssData.VectorString)
			if err != nil {
				slog.Warn("could not derive CVSSv3 data", "cve", item.CVE.ID, "err", err)
				return
			}
			if record.ScoreV3 == "" {
				record.ScoreV3 = FormatScore(derivedScore)
			}
			if record.Vector == "" {
				record.Vector = derivedVector
			}
		}
	})

	impactV2 := item.CVE.Metrics.CvssMetricV2.
		SelectByType("Primary").
		Or(OptionalFirst(item.CVE.Metrics.CvssMetricV2))
	impactV2.IfSome(func(v CvssMetricV2) {
		score, err := v.CvssData.BaseScore.Float64()
		if err == nil {
			record.ScoreV2 = FormatScore(score)
		}
	})

	if err := upsertNVD(tx, &record); err != nil {
		return err
	}

	return ProcessNVDCveConfigurations(tx, record.ID, rewriters, item.CVE.Configurations)
}

func ProcessNVDCveConfigurations(
	tx *store.Store,
	cveID string,
	rewriters []compiledRewriter,
	configurations []Configuration,
) error {
	for _, configuration := range configurations {
		for _, node := range configuration.Nodes {
			for _, match := range node.CPEMatch {
				if !match.Vulnerable {
					continue
				}
				cpe := match.Criteria
				for _, rewriter := range rewriters {
					cpe = rewriter.Rewrite(cpe)
				}

				product, ok := productFromCPEMatch(cveID, cpe, match)
				if !ok {
					continue
				}

				err := insertProductOnce(tx, &product)
				if err != nil {
					slog.Error(
						"could not store product",
						"product", product.Product,
						"cve", cveID,
						"err", err,
					)
				}
			}
		}
	}
	return nil
}

// productFromCPEMatch maps one CPE match to a version-range tuple. A match
// with neither an exact version nor range bounds carries no usable
// information and is skipped.
func productFromCPEMatch(cveID string, cpe CPE23Uri, match CPEMatch) (cvecheck.Product, bool) {
	product := cvecheck.Product{
		VulnerabilityID: cveID,
		Vendor:          cpe.Vendor,
		Product:         cpe.Product,
	}

	if !match.UsesVersionRanges() {
		if cpe.Version == "*" || cpe.Version == "-" {
			return product, false
		}
		product.VersionStart = cpe.Version
		product.OperatorStart = "="
		return product, true
	}

	match.VersionStartIncluding.IfSome(func(v string) {
		product.VersionStart = v
		product.OperatorStart = ">="
	})
	match.VersionStartExcluding.IfSome(func(v string) {
		product.VersionStart = v
		product.OperatorStart = ">"
	})
	match.VersionEndIncluding.IfSome(func(v string) {
		product.VersionEnd = v
		product.OperatorEnd = "<="
	})
	match.VersionEndExcluding.IfSome(func(v string) {
		product.VersionEnd = v
		product.OperatorEnd = "<"
	})

	return product, true
}

// upsertNVD creates or recency-guard-updates one vulnerability record.
func upsertNVD(tx *store.Store, record *cvecheck.NVDRecord) error {
	_, err := tx.GetNVD(record.ID)
	switch {
	case err == nil:
		return tx.UpdateNVD(record)
	case errors.Is(err, store.ErrNotFound):
		return tx.CreateNVD(record)
	default:
		return err
	}
}

// insertProductOnce stores a product tuple unless an identical tuple exists.
func insertProductOnce(tx *store.Store, product *cvecheck.Product) error {
	exists, err := tx.ProductExists(product)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return tx.CreateProduct(product)
}

func parseNVDTime(value string) time.Time {
	formats := []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC()
		}
	}
	slog.Warn("could not parse modification time", "value", value)
	return time.Time{}
}
