package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidSemester(t *testing.T) {
	currentYear := time.Now().Year()

	cases := []struct {
		semester string
		valid    bool
	}{
		{"semestre-1-2024", true},
		{"semestre-2-2024", true},
		{fmt.Sprintf("semestre-1-%d", currentYear), true},
		{fmt.Sprintf("semestre-2-%d", currentYear+20), true},

		{fmt.Sprintf("semestre-1-%d", currentYear+21), false},
		{"semestre-1-2023", false},
		{"semestre-3-2025", false},
		{"semestre-0-2025", false},
		{"semester-1-2025", false},
		{"semestre-1-banana", false},
		{"semestre--2025", false},
		{"semestre-1", false},
		{"semestre-1-2025-extra", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.valid, IsValidSemester(tc.semester), "semester %q", tc.semester)
	}
}

func TestCurrentSemesterFormat(t *testing.T) {
	current := CurrentSemester()
	require.True(t, IsValidSemester(current), "current semester %q must validate", current)

	expected := 1
	if time.Now().Month() > time.June {
		expected = 2
	}
	assert.Equal(t, fmt.Sprintf("semestre-%d-%d", expected, time.Now().Year()), current)
}

func TestIsPastSemester(t *testing.T) {
	assert.True(t, IsPastSemester("semestre-1-2024"))
	assert.False(t, IsPastSemester(CurrentSemester()))
	assert.False(t, IsPastSemester(fmt.Sprintf("semestre-1-%d", time.Now().Year()+1)))
	assert.False(t, IsPastSemester("not-a-semester"))
}

func TestSemesterLabels(t *testing.T) {
	assert.Equal(t, "Semestre 1 - 2025", SemesterLabel("semestre-1-2025"))
	assert.Equal(t, "Primer Semestre 2025", DetailedSemesterLabel("semestre-1-2025"))
	assert.Equal(t, "Segundo Semestre 2024", DetailedSemesterLabel("semestre-2-2024"))
}

func TestDefaultSemesters(t *testing.T) {
	semesters := DefaultSemesters()
	require.NotEmpty(t, semesters)
	assert.Equal(t, "semestre-1-2024", semesters[0])
	assert.Equal(t, "semestre-2-2024", semesters[1])
	for _, s := range semesters {
		assert.True(t, IsValidSemester(s), "listed semester %q must validate", s)
	}
}
