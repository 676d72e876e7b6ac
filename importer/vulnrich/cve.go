package vulnrich

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/moznion/go-optional"
)

// Stringable covers version fields that some CNAs emit as JSON numbers
// instead of strings.
type Stringable string

var _ json.Unmarshaler = (*Stringable)(nil)

func (s *Stringable) UnmarshalJSON(b []byte) error {
	var value string
	err := json.Unmarshal(b, &value)
	if err == nil {
		*s = Stringable(value)
		return nil
	}

	var valueInt int
	err = json.Unmarshal(b, &valueInt)
	if err != nil {
		return fmt.Errorf("stringable: cannot interpret version as string or int: %w", err)
	}

	*s = Stringable(strconv.Itoa(valueInt))
	return nil
}

func (s Stringable) String() string {
	return string(s)
}

type ProviderMetadata struct {
	DateUpdated DateTime `json:"dateUpdated"`
	OrgID       string   `json:"orgId"`
	ShortName   string   `json:"shortName"`
}

type AffectedStatus string

const (
	AffectedStatusAffected   AffectedStatus = "affected"
	AffectedStatusUnaffected AffectedStatus = "unaffected"
	AffectedStatusUnknown    AffectedStatus = "unknown"
)

type Version struct {
	LessThan        optional.Option[string]         `json:"lessThan"`
	LessThanOrEqual optional.Option[string]         `json:"lessThanOrEqual"`
	Status          optional.Option[AffectedStatus] `json:"status"`
	Version         Stringable                      `json:"version"`
	VersionType     optional.Option[string]         `json:"versionType"`
}

type Affected struct {
	CPEs          []string                        `json:"cpes"`
	Product       string                          `json:"product"`
	Vendor        string                          `json:"vendor"`
	DefaultStatus optional.Option[AffectedStatus] `json:"defaultStatus"`
	Versions      []Version                       `json:"versions"`
}

type CveDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type CveDescriptions []CveDescription

func (c CveDescriptions) ForLang(lang string) optional.Option[CveDescription] {
	for _, descr := range c {
		if descr.Lang == lang {
			return optional.Some(descr)
		}
	}
	return optional.None[CveDescription]()
}

type CvssMetric struct {
	Version      string      `json:"version"`
	VectorString string      `json:"vectorString"`
	BaseScore    json.Number `json:"baseScore"`
	BaseSeverity string      `json:"baseSeverity"`
	AttackVector string      `json:"attackVector"`
}

type Metric struct {
	Format  string                      `json:"format"`
	CvssV20 optional.Option[CvssMetric] `json:"cvssV2_0"`
	CvssV30 optional.Option[CvssMetric] `json:"cvssV3_0"`
	CvssV31 optional.Option[CvssMetric] `json:"cvssV3_1"`
	CvssV40 optional.Option[CvssMetric] `json:"cvssV4_0"`
}

type CveContainer struct {
	ProviderMetadata ProviderMetadata        `json:"providerMetadata"`
	DatePublic       DateTime                `json:"datePublic"`
	Title            optional.Option[string] `json:"title"`
	Descriptions     CveDescriptions         `json:"descriptions"`
	Affected         []Affected              `json:"affected"`
	Metrics          []Metric                `json:"metrics"`
	RejectedReasons  CveDescriptions         `json:"rejectedReasons"`
}

type Containers struct {
	Cna CveContainer   `json:"cna"`
	Adp []CveContainer `json:"adp"`
}

type CveState string

const (
	CveStatePublished CveState = "PUBLISHED"
	CveStateRejected  CveState = "REJECTED"
)

type CveMetadata struct {
	DateUpdated   DateTime `json:"dateUpdated"`
	DatePublished DateTime `json:"datePublished"`
	DateRejected  DateTime `json:"dateRejected"`
	CveID         string   `json:"cveId"`
	State         CveState `json:"state"`
}

type Record struct {
	CveMetadata CveMetadata `json:"cveMetadata"`
	DataType    string      `json:"dataType"`
	DataVersion string      `json:"dataVersion"`
	Containers  Containers  `json:"containers"`
}

type Records []Record

func (r Records) Filter(predicate func(Record) bool) (result Records) {
	for _, record := range r {
		if predicate(record) {
			result = append(result, record)
		}
	}
	return
}
