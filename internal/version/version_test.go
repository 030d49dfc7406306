package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, Version, v)
	assert.Equal(t, "dev (commit unknown, built unknown)", String())
	assert.NotEmpty(t, c)
	assert.NotEmpty(t, d)
}
