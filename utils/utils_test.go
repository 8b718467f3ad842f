package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+1 (415) 555-0100"))
	assert.True(t, ValidatePhone("447700900123"))
	assert.False(t, ValidatePhone("0123"))
	assert.False(t, ValidatePhone("call me"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(time.Date(2026, 12, 17, 15, 4, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestValidTimezone(t *testing.T) {
	assert.True(t, ValidTimezone("UTC"))
	assert.False(t, ValidTimezone(""))
	assert.False(t, ValidTimezone("Mars/Olympus"))
}
