package annotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionKey(t *testing.T) {
	s := NewSession(time.Minute)
	input := []byte(sampleGeoJSON)

	assert.Equal(t, s.key(input, "check", "a", "b", "c"), s.key(input, "check", "a", "b", "c"))
	assert.NotEqual(t, s.key(input, "check", "a|b", "c", "d"), s.key(input, "check", "a", "b|c", "d"))
	assert.NotEqual(t, s.key(input, "check", "ab", "c"), s.key(input, "check", "a", "bc"))
	assert.NotEqual(t, s.key([]byte("x"), "y"), s.key([]byte("xy")))
	assert.NotEqual(t, s.key(input, "check"), NewSession(time.Minute).key(input, "check"))
}
