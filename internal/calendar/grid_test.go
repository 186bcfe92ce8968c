package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestMonthGrid(t *testing.T) {
	tests := []struct {
		name         string
		anchor       time.Time
		firstWeekday time.Weekday
		wantOffset   int
		wantInMonth  int
	}{
		// January 1 2024 is a Monday.
		{"jan 2024 sunday start", date(2024, 1, 15), time.Sunday, 1, 31},
		{"jan 2024 monday start", date(2024, 1, 15), time.Monday, 0, 31},
		// February 1 2024 is a Thursday, leap year.
		{"feb 2024", date(2024, 2, 29), time.Sunday, 4, 29},
		// September 1 2024 is a Sunday.
		{"sep 2024", date(2024, 9, 30), time.Sunday, 0, 30},
		// March 1 2025 is a Saturday, month spans six rows.
		{"mar 2025", date(2025, 3, 1), time.Sunday, 6, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := MonthGrid(tt.anchor, tt.firstWeekday)
			require.Len(t, cells, MonthCells)

			inMonth := 0
			firstIn := -1
			for i, c := range cells {
				if c.InPeriod {
					inMonth++
					if firstIn < 0 {
						firstIn = i
					}
				}
				if i > 0 {
					assert.Equal(t, cells[i-1].Date.AddDate(0, 0, 1), c.Date, "cells must be consecutive")
				}
			}
			assert.Equal(t, tt.wantInMonth, inMonth)
			assert.Equal(t, tt.wantOffset, firstIn)
			assert.Equal(t, 1, cells[firstIn].Date.Day())
			assert.Equal(t, tt.firstWeekday, cells[0].Date.Weekday())
		})
	}
}

func TestMonthCellDate(t *testing.T) {
	anchor := date(2024, 1, 15)
	assert.Equal(t, date(2023, 12, 31), MonthCellDate(anchor, time.Sunday, 0, 0))
	assert.Equal(t, date(2024, 1, 19), MonthCellDate(anchor, time.Sunday, 2, 5))
	assert.Equal(t, MonthCellDate(anchor, time.Sunday, 5, 6), MonthCellDate(anchor, time.Sunday, 9, 9))
}

func TestWeekGrid(t *testing.T) {
	// Wednesday.
	days := WeekGrid(date(2024, 1, 10).Add(15 * time.Hour))
	require.Len(t, days, 7)
	assert.Equal(t, date(2024, 1, 7), days[0])
	assert.Equal(t, time.Sunday, days[0].Weekday())
	assert.Equal(t, date(2024, 1, 13), days[6])

	assert.Equal(t, date(2024, 1, 7), WeekStart(date(2024, 1, 7)), "sunday is its own week start")
}

func TestCommitDate(t *testing.T) {
	anchor := date(2024, 1, 10)
	assert.Equal(t, anchor, CommitDate(ViewDay, anchor.Add(9*time.Hour), 4))
	assert.Equal(t, date(2024, 1, 12), CommitDate(ViewWeek, anchor, 5), "sunday + 5 is friday")
	assert.Equal(t, date(2024, 1, 13), CommitDate(ViewWeek, anchor, 11), "index clamps to saturday")
	assert.Equal(t, date(2024, 1, 7), CommitDate(ViewWeek, anchor, -1))
}

func TestShift(t *testing.T) {
	anchor := date(2024, 1, 31)
	assert.Equal(t, date(2024, 2, 1), Shift(ViewDay, anchor, 1))
	assert.Equal(t, date(2024, 1, 24), Shift(ViewWeek, anchor, -1))
	assert.Equal(t, date(2024, 2, 1), Shift(ViewMonth, anchor, 1), "month shift must not overflow into march")
	assert.Equal(t, date(2023, 12, 1), Shift(ViewMonth, anchor, -1))
}

func TestVisibleAndFetchWindow(t *testing.T) {
	anchor := date(2024, 1, 10)

	s, e := Visible(ViewWeek, anchor, time.Sunday)
	assert.Equal(t, date(2024, 1, 7), s)
	assert.Equal(t, date(2024, 1, 13), e)

	s, e = Visible(ViewMonth, anchor, time.Sunday)
	assert.Equal(t, date(2023, 12, 31), s)
	assert.Equal(t, date(2024, 2, 10), e)

	ws, we := FetchWindow(anchor)
	assert.Equal(t, date(2023, 12, 1), ws)
	assert.Equal(t, date(2024, 2, 29), we)
	assert.True(t, Covers(ws, we, s, e))
	assert.False(t, Covers(ws, we, s, date(2024, 3, 1)))
}

func TestParseView(t *testing.T) {
	v, err := ParseView("Month")
	require.NoError(t, err)
	assert.Equal(t, ViewMonth, v)
	assert.Equal(t, 7, v.Columns())
	assert.Equal(t, 1, ViewDay.Columns())

	_, err = ParseView("year")
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Jan 7-13, 2024", Title(ViewWeek, date(2024, 1, 10)))
	assert.Equal(t, "Dec 31 - Jan 6, 2024", Title(ViewWeek, date(2024, 1, 3)))
	assert.Equal(t, "January 2024", Title(ViewMonth, date(2024, 1, 3)))
}
