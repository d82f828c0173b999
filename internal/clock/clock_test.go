package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 3, 123456789, time.Local)
	assert.Equal(t, "2024-03-09T07:05:03.123456", Format(at))
}

func TestFixed(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Fixed(at).Now().Equal(at))
}

func TestSystemAdvances(t *testing.T) {
	before := time.Now()
	assert.False(t, System{}.Now().Before(before))
}
