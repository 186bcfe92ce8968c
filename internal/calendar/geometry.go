// Package calendar maps screen coordinates to calendar time and builds the
// day, week and month grids the calendar views render.
package calendar

import (
	"fmt"
	"math"
	"time"
)

// Step is the snapping resolution in hours.
const Step = 0.25

// Snap rounds h to the nearest quarter hour. Halves round up.
func Snap(h float64) float64 {
	return math.Floor(h*4+0.5) / 4
}

// PixelToTime converts a vertical offset inside the time grid to a snapped
// fractional hour.
func PixelToTime(relativeY, rowHeight, firstHour float64) float64 {
	if rowHeight <= 0 {
		return Snap(firstHour)
	}
	return Snap(firstHour + relativeY/rowHeight)
}

// TimeToPixel is the inverse of PixelToTime, without snapping.
func TimeToPixel(hour, rowHeight, firstHour float64) float64 {
	return (hour - firstHour) * rowHeight
}

// PixelToDayIndex converts a horizontal offset to a column index clamped to
// [0, columns-1].
func PixelToDayIndex(relativeX, totalWidth float64, columns int) int {
	if columns <= 0 || totalWidth <= 0 {
		return 0
	}
	idx := int(math.Floor(relativeX / (totalWidth / float64(columns))))
	return clamp(idx, 0, columns-1)
}

// HourOf returns the time of day of t as fractional hours.
func HourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// AtHour places a fractional hour on date, keeping the date's location.
// Minutes are rounded to the nearest whole minute.
func AtHour(date time.Time, hour float64) time.Time {
	mins := int(math.Round(hour * 60))
	return time.Date(date.Year(), date.Month(), date.Day(), 0, mins, 0, 0, date.Location())
}

// FormatHour renders a fractional hour as a short 12-hour label ("9am", "2:30pm").
func FormatHour(hour float64) string {
	mins := int(math.Round(hour * 60))
	h, m := (mins/60)%24, mins%60
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	if m == 0 {
		return fmt.Sprintf("%d%s", h12, suffix)
	}
	return fmt.Sprintf("%d:%02d%s", h12, m, suffix)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
