package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeadline_ISODate(t *testing.T) {
	deadline := ParseDeadline("submission closes 2026-02-15 at midnight")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), *deadline)
}

func TestParseDeadline_SlashSeparatedISO(t *testing.T) {
	deadline := ParseDeadline("due 2026/3/5")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), *deadline)
}

func TestParseDeadline_ChineseDateUsesCurrentYear(t *testing.T) {
	deadline := ParseDeadline("截止日期为2月15日，请尽快提交")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Now().Year(), deadline.Year())
	assert.Equal(t, time.February, deadline.Month())
	assert.Equal(t, 15, deadline.Day())
}

func TestParseDeadline_DayMonthYear(t *testing.T) {
	deadline := ParseDeadline("payment due 15/02/2026")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), *deadline)
}

func TestParseDeadline_EnglishMonthFirst(t *testing.T) {
	deadline := ParseDeadline("The review is due February 15, 2026.")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), *deadline)
}

func TestParseDeadline_EnglishDayFirstWithoutYear(t *testing.T) {
	deadline := ParseDeadline("see you on 15 Feb")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Now().Year(), deadline.Year())
	assert.Equal(t, time.February, deadline.Month())
	assert.Equal(t, 15, deadline.Day())
}

func TestParseDeadline_FirstPatternWins(t *testing.T) {
	deadline := ParseDeadline("reply by 2026-03-01, final cutoff March 5, 2026")

	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *deadline)
}

func TestParseDeadline_RejectsImpossibleDate(t *testing.T) {
	assert.Nil(t, ParseDeadline("due 2026-02-31"))
}

func TestParseDeadline_NoDate(t *testing.T) {
	assert.Nil(t, ParseDeadline("no date in here"))
	assert.Nil(t, ParseDeadline(""))
}

func TestDaysUntil(t *testing.T) {
	now := time.Now().UTC()

	assert.Equal(t, 0, DaysUntil(now))
	assert.Equal(t, 3, DaysUntil(now.AddDate(0, 0, 3)))
	assert.Equal(t, -1, DaysUntil(now.AddDate(0, 0, -1)))
}
