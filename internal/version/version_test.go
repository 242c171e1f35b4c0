package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(v, sha, bt string) { Version, GitSHA, BuildTime = v, sha, bt }(Version, GitSHA, BuildTime)

	assert.Equal(t, "livestack dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "abc1234", "2026-10-01T20:00:00Z"
	assert.Equal(t, "livestack 1.2.0 (abc1234, built 2026-10-01T20:00:00Z)", String())
}
