package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	o "github.com/moznion/go-optional"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/importer/vulnrich"
	"github.com/rdecicco/cvecheckreport/store"
)

const (
	vulnrichDefaultRemote = "https://github.com/cisagov/vulnrichment.git"
	vulnrichDefaultPath   = "vulnrichment.git"
)

// VulnrichFeed mirrors the CISA vulnrichment repository and merges every CVE
// record updated within the given period into the reference data.
func VulnrichFeed(
	st *store.Store,
	config cvecheck.Config,
	period time.Duration,
) error {
	rewriters, err := compileRewriters(config)
	if err != nil {
		return err
	}

	remote := config.Importers.Vulnrich.Remote
	if remote == "" {
		remote = vulnrichDefaultRemote
	}
	path := config.Importers.Vulnrich.Path
	if path == "" {
		path = vulnrichDefaultPath
	}

	slog.Info("Fetching vulnrichment repository", "remote", remote)
	repo, err := vulnrich.GetRepo(remote, path)
	if err != nil {
		return err
	}

	err = vulnrich.UpdateRepo(repo)
	if err != nil {
		return fmt.Errorf("could not update vulnrichment repo: %w", err)
	}

	records := vulnrich.Records{}
	err = vulnrich.WalkCVEFiles(repo, func(name string, content io.Reader) error {
		data, err := io.ReadAll(content)
		if err != nil {
			return err
		}

		record := vulnrich.Record{}
		err = json.Unmarshal(data, &record)
		if err != nil {
			slog.Error("could not unmarshal vulnrich record", "filename", name, "err", err)
			return nil
		}

		records = append(records, record)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not read records from repo: %w", err)
	}

	recent := records.Filter(func(r vulnrich.Record) bool {
		container := OptionalFirst(r.Containers.Adp).TakeOr(r.Containers.Cna)
		return container.ProviderMetadata.DateUpdated.After(time.Now().Add(-period))
	})
	slog.Info("Importing vulnrichment records", "period", period, "records", len(recent))

	return st.Transaction(func(tx *store.Store) error {
		for _, record := range recent {
			err := ProcessVulnrichRecord(tx, rewriters, record)
			if err != nil {
				slog.Error("could not process vulnrich record", "cve", record.CveMetadata.CveID, "err", err)
			}
		}
		return nil
	})
}

func ProcessVulnrichRecord(
	tx *store.Store,
	rewriters []compiledRewriter,
	record vulnrich.Record,
) error {
	cna := record.Containers.Cna
	adp := OptionalFirst(record.Containers.Adp)
	container := adp.TakeOr(cna)

	cveDescription := o.None[vulnrich.CveDescriptions]()
	if record.CveMetadata.State == vulnrich.CveStateRejected {
		cveDescription = o.Some(cna.RejectedReasons)
	}
	cveDescription = cveDescription.
		Or(OptionalNonEmpty(cna.Descriptions)).
		Or(o.FlatMap(adp, func(v vulnrich.CveContainer) o.Option[vulnrich.CveDescriptions] {
			return OptionalNonEmpty(v.Descriptions)
		}))

	description := o.
		FlatMap(cveDescription, func(v vulnrich.CveDescriptions) o.Option[string] {
			descr := v.ForLang("en").Or(v.ForLang("en-US"))
			return o.Map(descr, func(v vulnrich.CveDescription) string {
				return v.Value
			})
		}).
		Or(cna.Title)

	if description.IsNone() {
		slog.Warn("No descriptions found", "cve", record.CveMetadata.CveID)
		return nil
	}

	nvdRecord := cvecheck.NVDRecord{
		ID:       record.CveMetadata.CveID,
		Summary:  description.TakeOr(""),
		Modified: container.ProviderMetadata.DateUpdated.UTC(),
	}

	// CNA metrics take precedence, enrichment metrics from the ADP container
	// fill in when the CNA provided none.
	metric := OptionalFirst(cna.Metrics).Or(
		o.FlatMap(adp, func(v vulnrich.CveContainer) o.Option[vulnrich.Metric] {
			return OptionalFirst(v.Metrics)
		}),
	)

	metric.IfSome(func(m vulnrich.Metric) {
		m.CvssV31.Or(m.CvssV30).IfSome(func(v vulnrich.CvssMetric) {
			nvdRecord.VectorString = v.VectorString
			nvdRecord.Vector = v.AttackVector
			if score, err := v.BaseScore.Float64(); err == nil {
				nvdRecord.ScoreV3 = FormatScore(score)
			}
			if nvdRecord.Vector == "" || nvdRecord.ScoreV3 == "" {
				derivedScore, derivedVector, err := ParseCVSS3Vector(v.VectorString)
				if err != nil {
					slog.Warn("could not derive CVSSv3 data", "cve", nvdRecord.ID, "err", err)
					return
				}
				if nvdRecord.ScoreV3 == "" {
					nvdRecord.ScoreV3 = FormatScore(derivedScore)
				}
				if nvdRecord.Vector == "" {
					nvdRecord.Vector = derivedVector
				}
			}
		})

		m.CvssV20.IfSome(func(v vulnrich.CvssMetric) {
			if score, err := v.BaseScore.Float64(); err == nil {
				nvdRecord.ScoreV2 = FormatScore(score)
			}
		})
	})

	if err := upsertNVD(tx, &nvdRecord); err != nil {
		return fmt.Errorf("could not store cve %s: %w", nvdRecord.ID, err)
	}

	for _, affected := range cna.Affected {
		err := ProcessCveAffected(tx, rewriters, cna, nvdRecord.ID, affected)
		if err != nil {
			slog.Error("could not process cna.Affected", "cve", nvdRecord.ID, "err", err)
		}
	}
	adp.IfSome(func(adp vulnrich.CveContainer) {
		for _, affected := range adp.Affected {
			err := ProcessCveAffected(tx, rewriters, adp, nvdRecord.ID, affected)
			if err != nil {
				slog.Error("could not process adp.Affected", "cve", nvdRecord.ID, "err", err)
			}
		}
	})

	return nil
}

func ProcessCveAffected(
	tx *store.Store,
	rewriters []compiledRewriter,
	container vulnrich.CveContainer,
	cveID string,
	affected vulnrich.Affected,
) error {
	cpe := o.FlatMap(
		OptionalFirst(affected.CPEs), func(v string) o.Option[CPE23Uri] {
			cpe, _ := NewCPEUri(v)
			return o.Some(cpe)
		}).
		TakeOr(CPE23Uri{Vendor: affected.Vendor, Product: affected.Product})

	for _, rewriter := range rewriters {
		cpe = rewriter.Rewrite(cpe)
	}

	for _, version := range affected.Versions {
		vulnerable := o.MapOr(
			version.Status.Or(affected.DefaultStatus),
			false,
			func(v vulnrich.AffectedStatus) bool {
				return v == vulnrich.AffectedStatusAffected
			})
		if !vulnerable {
			continue
		}

		product, ok := productFromAffectedVersion(container, cveID, cpe, version)
		if !ok {
			continue
		}

		if err := insertProductOnce(tx, &product); err != nil {
			slog.Error(
				"could not store product",
				"product", product.Product,
				"cve", cveID,
				"err", err,
			)
		}
	}

	return nil
}

// productFromAffectedVersion maps one affected-version entry to a
// version-range tuple. Entries that pin down no version at all are skipped.
func productFromAffectedVersion(
	container vulnrich.CveContainer,
	cveID string,
	cpe CPE23Uri,
	version vulnrich.Version,
) (cvecheck.Product, bool) {
	product := cvecheck.Product{
		VulnerabilityID: cveID,
		Vendor:          cpe.Vendor,
		Product:         cpe.Product,
	}

	base := strings.TrimSpace(version.Version.String())

	// GitHub's CNA encodes the whole range inside the version field, for
	// example ">= 4.0.0, < 4.2.1".
	if container.ProviderMetadata.ShortName == "GitHub_M" &&
		version.LessThan.IsNone() && version.LessThanOrEqual.IsNone() {
		return productFromGithubRange(product, base)
	}

	upper := version.LessThan.IsSome() || version.LessThanOrEqual.IsSome()

	if !upper {
		if base == "-" || base == "*" || base == "" {
			return product, false
		}
		product.VersionStart = base
		product.OperatorStart = "="
		return product, true
	}

	version.LessThan.IfSome(func(v string) {
		product.VersionEnd = v
		product.OperatorEnd = "<"
	})
	version.LessThanOrEqual.IfSome(func(v string) {
		product.VersionEnd = v
		product.OperatorEnd = "<="
	})

	if base == "-" || base == "*" || base == "" || base == product.VersionEnd {
		base = "0"
	}
	product.VersionStart = base
	product.OperatorStart = ">="

	return product, true
}

func productFromGithubRange(product cvecheck.Product, value string) (cvecheck.Product, bool) {
	firstLimit, secondLimit, hasLowerBound := strings.Cut(value, ", ")
	firstLimitOp, firstLimitVer, ok := strings.Cut(firstLimit, " ")
	if !ok {
		return product, false
	}

	if hasLowerBound {
		secondLimitOp, secondLimitVer, ok := strings.Cut(secondLimit, " ")
		if !ok {
			return product, false
		}
		product.VersionStart = firstLimitVer
		product.OperatorStart = firstLimitOp
		product.VersionEnd = secondLimitVer
		product.OperatorEnd = secondLimitOp
	} else {
		product.VersionStart = "0"
		product.OperatorStart = ">="
		product.VersionEnd = firstLimitVer
		product.OperatorEnd = firstLimitOp
	}

	return product, true
}
