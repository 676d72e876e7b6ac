package importer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moznion/go-optional"

	"github.com/rdecicco/cvecheckreport/importer/vulnrich"
)

func githubContainer() vulnrich.CveContainer {
	return vulnrich.CveContainer{
		ProviderMetadata: vulnrich.ProviderMetadata{ShortName: "GitHub_M"},
	}
}

func TestProductFromAffectedVersionLessThan(t *testing.T) {
	require := require.New(t)

	product, ok := productFromAffectedVersion(
		vulnrich.CveContainer{},
		"CVE-2024-0001",
		CPE23Uri{Vendor: "acme", Product: "widget"},
		vulnrich.Version{
			Version:  "1.0",
			LessThan: optional.Some("2.0"),
		},
	)
	require.True(ok)
	require.Equal("1.0", product.VersionStart)
	require.Equal(">=", product.OperatorStart)
	require.Equal("2.0", product.VersionEnd)
	require.Equal("<", product.OperatorEnd)
}

func TestProductFromAffectedVersionExact(t *testing.T) {
	require := require.New(t)

	product, ok := productFromAffectedVersion(
		vulnrich.CveContainer{},
		"CVE-2024-0001",
		CPE23Uri{Vendor: "acme", Product: "widget"},
		vulnrich.Version{Version: "1.36.1"},
	)
	require.True(ok)
	require.Equal("1.36.1", product.VersionStart)
	require.Equal("=", product.OperatorStart)
	require.Empty(product.VersionEnd)
}

func TestProductFromAffectedVersionWildcardLowerBound(t *testing.T) {
	require := require.New(t)

	product, ok := productFromAffectedVersion(
		vulnrich.CveContainer{},
		"CVE-2024-0001",
		CPE23Uri{Vendor: "acme", Product: "widget"},
		vulnrich.Version{
			Version:         "-",
			LessThanOrEqual: optional.Some("2.0"),
		},
	)
	require.True(ok)
	require.Equal("0", product.VersionStart, "an unbounded start becomes 0")
	require.Equal("<=", product.OperatorEnd)
}

func TestProductFromAffectedVersionUnusable(t *testing.T) {
	require := require.New(t)

	_, ok := productFromAffectedVersion(
		vulnrich.CveContainer{},
		"CVE-2024-0001",
		CPE23Uri{Vendor: "acme", Product: "widget"},
		vulnrich.Version{Version: "*"},
	)
	require.False(ok)
}

func TestProductFromGithubRange(t *testing.T) {
	require := require.New(t)

	product, ok := productFromAffectedVersion(
		githubContainer(),
		"CVE-2024-0001",
		CPE23Uri{Vendor: "acme", Product: "widget"},
		vulnrich.Version{Version: ">= 4.0.0, < 4.2.1"},
	)
	require.True(ok)
	require.Equal("4.0.0", product.VersionStart)
	require.Equal(">=", product.OperatorStart)
	require.Equal("4.2.1", product.VersionEnd)
	require.Equal("<", product.OperatorEnd)
}

func TestProductFromGithubRangeUpperBoundOnly(t *testing.T) {
	require := require.New(t)

	product, ok := productFromAffectedVersion(
		githubContainer(),
		"CVE-2024-0001",
		CPE23Uri{Vendor: "acme", Product: "widget"},
		vulnrich.Version{Version: "< 1.5.0"},
	)
	require.True(ok)
	require.Equal("0", product.VersionStart)
	require.Equal(">=", product.OperatorStart)
	require.Equal("1.5.0", product.VersionEnd)
	require.Equal("<", product.OperatorEnd)
}
