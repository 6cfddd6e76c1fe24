package hostinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect_AlwaysPopulatesBasics(t *testing.T) {
	info := Collect()

	assert.NotEmpty(t, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
}

func TestCollect_HostnameMatchesOS(t *testing.T) {
	info := Collect()

	// os.Hostname failing is the only way this is empty.
	assert.NotEmpty(t, info.Hostname)
}
