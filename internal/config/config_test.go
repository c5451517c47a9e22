package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "spreadsheet_id: abc123\n"))
	require.NoError(t, err)

	assert.Equal(t, "sheets", c.Source)
	assert.Equal(t, "abc123", c.SpreadsheetID)
	assert.Equal(t, 2024, c.CurrentYear)
	assert.Equal(t, 2023, c.PriorYear)
	assert.Equal(t, "zero", c.VariationPolicy)
	assert.Equal(t, "1644783757", c.Tab(RoleDNB))
	assert.Equal(t, "776936543", c.Tab(RolePhilosophie))
	assert.Equal(t, 3, c.RetryMaxAttempts)
	assert.Equal(t, 5.0, c.RequestsPerSecond)
	assert.NoError(t, c.Validate())
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := writeConfig(t, `
spreadsheet_id: from-file
variation_policy: na
tabs:
  dnb: "42"
`)
	t.Setenv("RESULTATS_SPREADSHEET_ID", "from-env")
	t.Setenv("RESULTATS_TABS_EAF", "99")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.SpreadsheetID)
	assert.Equal(t, "na", c.VariationPolicy)
	assert.Equal(t, "42", c.Tab(RoleDNB))
	assert.Equal(t, "99", c.Tab(RoleEAF))
	assert.Equal(t, "455744397", c.Tab(RoleEDS), "unset roles keep their default gid")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c, err := Load(writeConfig(t, "source: sheets\n"))
	require.NoError(t, err)
	err = c.Validate()
	require.Error(t, err, "sheets source needs a spreadsheet id")
	assert.Contains(t, err.Error(), "SpreadsheetID")

	require.NoError(t, c.Set("source", "dir"))
	assert.Error(t, c.Validate(), "dir source needs a data dir")
	require.NoError(t, c.Set("data_dir", t.TempDir()))
	assert.NoError(t, c.Validate())

	require.NoError(t, c.Set("prior_year", "2025"))
	assert.Error(t, c.Validate(), "prior year must precede current year")
}

func TestSetRejectsUnknownAndInvalid(t *testing.T) {
	c := &Global{}
	assert.Error(t, c.Set("api_key", "x"))
	assert.Error(t, c.Set("variation_policy", "maybe"))
	assert.Error(t, c.Set("current_year", "twenty"))
	assert.Error(t, c.Set("tabs.bogus", "1"))
	require.NoError(t, c.Set("tabs.go", "7"))
	assert.Equal(t, "7", c.Tab(RoleGrandOral))
	assert.Error(t, c.Set("requests_per_second", "-1"))
	require.NoError(t, c.Set("requests_per_second", "0.5"))
	assert.Equal(t, 0.5, c.RequestsPerSecond)
}

func TestSaveRoundTrip(t *testing.T) {
	c, err := Load(writeConfig(t, "spreadsheet_id: abc\n"))
	require.NoError(t, err)
	require.NoError(t, c.Set("variation_policy", "na"))
	require.NoError(t, c.Set("tabs.dnb", "555"))

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(c, out))

	back, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestSortedTabs(t *testing.T) {
	c := &Global{Tabs: map[string]string{"dnb": "1"}}
	tabs := c.SortedTabs()
	require.Len(t, tabs, len(Roles))
	assert.Equal(t, [2]string{"philosophie", "776936543"}, tabs[0])
	assert.Equal(t, [2]string{"dnb", "1"}, tabs[3])
}

func TestDirSourceNamesTabsAfterRoles(t *testing.T) {
	c := &Global{Source: "dir", Tabs: map[string]string{RoleDNB: DefaultTabs[RoleDNB], RoleEAF: "eaf-2024"}}
	assert.Equal(t, "dnb", c.Tab(RoleDNB))
	assert.Equal(t, "eaf-2024", c.Tab(RoleEAF))
	assert.Equal(t, "go", c.Tab(RoleGrandOral))
}
