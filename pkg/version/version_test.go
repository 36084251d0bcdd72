package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Parallel()

	assert.Contains(t, String(), "pyrefactor ")
	assert.Contains(t, String(), "commit: ")
}
