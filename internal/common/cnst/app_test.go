package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConstants(t *testing.T) {
	assert.Equal(t, "gloamd", AppName)
	assert.Equal(t, "gloamd", CommandName)
}
