package ticket

import (
	"math"
	"regexp"
	"strconv"
)

// Unit patterns for the time-to-resolve column. The sheet is filled in by
// hand in Indonesian: "1 jam 30 menit", "45 menit", "2 Jam".
var (
	hourPattern   = regexp.MustCompile(`(?i)(\d+)\s*jam`)
	minutePattern = regexp.MustCompile(`(?i)(\d+)\s*menit`)
)

// ParseTTR converts a free-text duration into minutes. The first hour
// quantity and the first minute quantity are read independently; anything
// else in the text is ignored. Text without either, or a total that does
// not fit in an int, yields 0.
func ParseTTR(s string) int {
	if s == "" {
		return 0
	}
	hours, minutes := firstQuantity(hourPattern, s), firstQuantity(minutePattern, s)
	if hours > (math.MaxInt-minutes)/60 {
		return 0
	}
	return hours*60 + minutes
}

func firstQuantity(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
