package useragent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickReturnsKnownUA(t *testing.T) {
	p := NewPool()
	for i := 0; i < 50; i++ {
		ua := p.Pick()
		assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0"), "unexpected UA %q", ua)
	}
}

func TestPickChromeLike(t *testing.T) {
	p := NewPool()
	for i := 0; i < 50; i++ {
		ua := p.PickChromeLike()
		assert.Contains(t, ua, "Chrome/")
		assert.NotContains(t, ua, "Mobile")
	}
}

func TestChromeMajor(t *testing.T) {
	assert.Equal(t, "126", ChromeMajor("Mozilla/5.0 ... Chrome/126.0.0.0 Safari/537.36"))
	assert.Equal(t, "126", ChromeMajor("Mozilla/5.0 (X11; rv:127.0) Gecko Firefox/127.0"))
}
