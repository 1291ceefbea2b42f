package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitelistMatch(t *testing.T) {
	l := DefaultLists()

	assert.Equal(t, "google.com", l.WhitelistMatch("google.com"))
	assert.Equal(t, "google.com", l.WhitelistMatch("www.google.com"))
	assert.Equal(t, "google.com", l.WhitelistMatch("mail.google.com"))

	// Substring without a dot boundary must not match.
	assert.Empty(t, l.WhitelistMatch("notgoogle.com"))
	assert.Empty(t, l.WhitelistMatch("google.com.evil.tk"))
}

func TestIsBlacklisted(t *testing.T) {
	l := DefaultLists()

	assert.True(t, l.IsBlacklisted("phishing-site.tk"))
	assert.True(t, l.IsBlacklisted("www.phishing-site.tk"))
	assert.False(t, l.IsBlacklisted("sub.phishing-site.tk"))
	assert.False(t, l.IsBlacklisted("example.com"))
}

func TestPatternMatching(t *testing.T) {
	l := DefaultLists()

	assert.True(t, l.MatchesSuspiciousPattern("paypal-security-alert.tk"))
	assert.False(t, l.MatchesSuspiciousPattern("example.com"))

	assert.True(t, l.MatchesTyposquat("g00gle.com"))
	assert.True(t, l.MatchesTyposquat("payp4l.net"))
	assert.False(t, l.MatchesTyposquat("google.com"))
}

func TestTLDAndShortener(t *testing.T) {
	l := DefaultLists()

	assert.True(t, l.IsSuspiciousTLD("anything.tk"))
	assert.False(t, l.IsSuspiciousTLD("anything.com"))

	assert.True(t, l.IsShortener("bit.ly"))
	assert.True(t, l.IsShortener("www.bit.ly"))
	assert.False(t, l.IsShortener("bitly.fake.com"))
}

func TestLoadListsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	content := `
whitelist:
  - internal.corp
blacklist:
  - bad.example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := LoadLists(path)
	require.NoError(t, err)

	// Overridden sections replace the defaults wholesale.
	if diff := cmp.Diff([]string{"internal.corp"}, l.Whitelist); diff != "" {
		t.Errorf("whitelist mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, l.IsBlacklisted("bad.example"))
	assert.False(t, l.IsBlacklisted("phishing-site.tk"))

	// Untouched sections keep the defaults.
	assert.True(t, l.IsShortener("bit.ly"))
	assert.NotEmpty(t, l.Brands)
}

func TestLoadListsErrors(t *testing.T) {
	_, err := LoadLists(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("suspicious_patterns:\n  - '['\n"), 0o644))
	_, err = LoadLists(bad)
	require.Error(t, err)
}
