package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockedStatus(t *testing.T) {
	assert.True(t, blockedStatus(403))
	assert.True(t, blockedStatus(429))
	assert.True(t, blockedStatus(503))
	assert.False(t, blockedStatus(200))
	assert.False(t, blockedStatus(404))
	assert.False(t, blockedStatus(500))
}

func TestBlockedBody(t *testing.T) {
	assert.True(t, blockedBody([]byte("<html>Pardon Our Interruption...</html>")))
	assert.True(t, blockedBody([]byte("<title>Access Denied</title>")))
	assert.True(t, blockedBody([]byte("please solve this CAPTCHA")))
	assert.False(t, blockedBody([]byte("<html><body>Milk 2L</body></html>")))
}

func TestBlockedBodyOnlyScansHead(t *testing.T) {
	// Indicator far beyond the scan window is ignored.
	body := strings.Repeat("x", 4096) + "access denied"
	assert.False(t, blockedBody([]byte(body)))
}

func TestValidBody(t *testing.T) {
	big := []byte(strings.Repeat("<p>product detail</p>", 50))
	assert.True(t, validBody(big, 0))
	assert.False(t, validBody([]byte("tiny"), 0))
	blocked := []byte("access denied " + strings.Repeat("x", 600))
	assert.False(t, validBody(blocked, 0))
}
