package importer

import (
	"fmt"
	"strings"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
)

// attackVectorNames maps the single-letter AV metric values to the names the
// NVD feeds use, which is also how attack vectors are stored and filtered.
var attackVectorNames = map[string]string{
	"N": "NETWORK",
	"A": "ADJACENT_NETWORK",
	"L": "LOCAL",
	"P": "PHYSICAL",
}

// ParseCVSS3Vector derives the base score and attack vector from a CVSSv3
// vector string. Feeds do not always carry the computed score and attack
// vector next to the vector string, so imports fall back to deriving them.
func ParseCVSS3Vector(vectorString string) (score float64, attackVector string, err error) {
	var av string

	switch {
	case strings.HasPrefix(vectorString, "CVSS:3.1"):
		cvss, err := gocvss31.ParseVector(vectorString)
		if err != nil {
			return 0, "", fmt.Errorf("could not parse CVSSv3.1 vector: %w", err)
		}
		score = cvss.BaseScore()
		av, err = cvss.Get("AV")
		if err != nil {
			return 0, "", fmt.Errorf("could not read attack vector: %w", err)
		}
	case strings.HasPrefix(vectorString, "CVSS:3.0"):
		cvss, err := gocvss30.ParseVector(vectorString)
		if err != nil {
			return 0, "", fmt.Errorf("could not parse CVSSv3.0 vector: %w", err)
		}
		score = cvss.BaseScore()
		av, err = cvss.Get("AV")
		if err != nil {
			return 0, "", fmt.Errorf("could not read attack vector: %w", err)
		}
	default:
		return 0, "", fmt.Errorf("unsupported vector string %q", vectorString)
	}

	name, ok := attackVectorNames[av]
	if !ok {
		return 0, "", fmt.Errorf("unknown attack vector value %q", av)
	}

	return score, name, nil
}

// FormatScore renders a CVSS score the way the reference database stores it,
// with one decimal digit.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}
