package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "елка", Fold("Ёлка"))
	assert.Equal(t, "cafe", Fold("CAFÉ"))
	assert.Equal(t, "naive", Fold("naïve"))
	assert.Equal(t, Fold("Ёжик"), Fold("ежик"))
	assert.Equal(t, "", Fold(""))
}
