package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Semester labels look like "semestre-1-2025". Semester 1 covers January
// through June, semester 2 July through December.

const semesterMinYear = 2024

// How many years past the current one a label may reference.
const semesterFutureYears = 20

// CurrentSemester derives the semester label from the calendar at call time.
func CurrentSemester() string {
	return semesterAt(time.Now())
}

func semesterAt(t time.Time) string {
	sem := 1
	if t.Month() > time.June {
		sem = 2
	}
	return fmt.Sprintf("semestre-%d-%d", sem, t.Year())
}

// parseSemester splits a label into semester number and year. Returns false
// for any deviation from the format contract.
func parseSemester(s string) (num, year int, ok bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] != "semestre" {
		return 0, 0, false
	}
	num, err := strconv.Atoi(parts[1])
	if err != nil || (num != 1 && num != 2) {
		return 0, 0, false
	}
	year, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return num, year, true
}

// IsValidSemester reports whether s matches "semestre-{1|2}-{year}" with the
// year inside [2024, currentYear+20].
func IsValidSemester(s string) bool {
	_, year, ok := parseSemester(s)
	if !ok {
		return false
	}
	return year >= semesterMinYear && year <= time.Now().Year()+semesterFutureYears
}

// IsPastSemester reports whether s strictly precedes the current semester
// under (year, semester) ordering.
func IsPastSemester(s string) bool {
	num, year, ok := parseSemester(s)
	if !ok {
		return false
	}
	curNum, curYear, _ := parseSemester(CurrentSemester())
	if year != curYear {
		return year < curYear
	}
	return num < curNum
}

// SemesterLabel renders a short human-readable label, e.g. "Semestre 1 - 2025".
// Unparseable input is returned as-is.
func SemesterLabel(s string) string {
	num, year, ok := parseSemester(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("Semestre %d - %d", num, year)
}

// DetailedSemesterLabel renders the long form used on report covers, e.g.
// "Primer Semestre 2025".
func DetailedSemesterLabel(s string) string {
	num, year, ok := parseSemester(s)
	if !ok {
		return s
	}
	name := "Primer"
	if num == 2 {
		name = "Segundo"
	}
	return fmt.Sprintf("%s Semestre %d", name, year)
}

// DefaultSemesters lists every selectable semester from the first supported
// year through the configured future horizon.
func DefaultSemesters() []string {
	return AvailableSemesters(semesterMinYear, semesterFutureYears)
}

// AvailableSemesters lists every semester label from startYear through
// futureYears years past the current one, oldest first.
func AvailableSemesters(startYear, futureYears int) []string {
	endYear := time.Now().Year() + futureYears
	var out []string
	for year := startYear; year <= endYear; year++ {
		out = append(out,
			fmt.Sprintf("semestre-1-%d", year),
			fmt.Sprintf("semestre-2-%d", year),
		)
	}
	return out
}
