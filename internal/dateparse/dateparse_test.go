package dateparse

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/harvest-service/internal/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseEquivalentForms(t *testing.T) {
	want := date(2025, time.September, 2)
	for _, raw := range []string{
		"Selasa, 2 September 2025",
		"2 September 2025",
		"2025-09-02",
		"Selasa, 02 Sep 2025 14:30 WIB",
		"selasa 2 september 2025, 07:00",
		"2025-09-02T23:59:00-05:00",
		"Diperbarui: Selasa, 2 September 2025 | 10:15 WIB",
		"September 2, 2025",
	} {
		t.Run(raw, func(t *testing.T) {
			got, err := Parse(raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got.Date), "got %s", got.Date)
			assert.False(t, got.Ambiguous)
		})
	}
}

func TestParseDayFirstAmbiguity(t *testing.T) {
	got, err := Parse("02/09/2025")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Date.Day())
	assert.Equal(t, time.September, got.Date.Month())
	assert.True(t, got.Ambiguous)
	assert.Equal(t, "numeric-day-first", got.Matcher)
}

func TestParseNumericUnambiguous(t *testing.T) {
	got, err := Parse("25-12-2024")
	require.NoError(t, err)
	assert.True(t, date(2024, time.December, 25).Equal(got.Date))
	assert.False(t, got.Ambiguous)

	same, err := Parse("05/05/2024")
	require.NoError(t, err)
	assert.False(t, same.Ambiguous)
}

func TestParseMonthNamePriority(t *testing.T) {
	got, err := Parse("Jumat, 1 Agustus 2025")
	require.NoError(t, err)
	assert.Equal(t, "day-month-name", got.Matcher)
	assert.True(t, date(2025, time.August, 1).Equal(got.Date))

	got, err = Parse("Jum'at, 15 Mei 2020 - 08:00 WIB")
	require.NoError(t, err)
	assert.True(t, date(2020, time.May, 15).Equal(got.Date))
}

func TestParseLongFormAnywhere(t *testing.T) {
	got, err := Parse("Dipublikasikan oleh Redaksi pada 17 Agustus 2024 pukul 09.00")
	require.NoError(t, err)
	assert.Equal(t, "long-form", got.Matcher)
	assert.True(t, date(2024, time.August, 17).Equal(got.Date))
}

func TestParseLongFormNeedsWholeNumbers(t *testing.T) {
	for _, raw := range []string{"Dilihat 123 Mei 2025 kali", "Update: 2 Mei 20251", "Kode Mei 123, 2025"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			var perr *entity.ParseError
			assert.True(t, errors.As(err, &perr), "parsed %q", raw)
		})
	}

	got, err := Parse("Dilihat 123 kali, terbit 5 Mei 2025")
	require.NoError(t, err)
	assert.True(t, date(2025, time.May, 5).Equal(got.Date))
}

func TestParseRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "kemarin", "31 Februari 2025", "2025-13-01", "99/99/2025", "2 Foo 2025"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			var perr *entity.ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, raw, perr.Raw)
		})
	}
}

func TestParseIndependentOfProcessTimezone(t *testing.T) {
	orig := time.Local
	defer func() { time.Local = orig }()

	var got []time.Time
	for _, zone := range []string{"Asia/Jakarta", "America/Los_Angeles", "Pacific/Kiritimati"} {
		loc, err := time.LoadLocation(zone)
		require.NoError(t, err)
		time.Local = loc
		r, err := Parse("2 September 2025 23:30 WIB")
		require.NoError(t, err)
		got = append(got, r.Date)
	}
	assert.True(t, got[0].Equal(got[1]))
	assert.True(t, got[1].Equal(got[2]))
}

func TestTruncate(t *testing.T) {
	in := time.Date(2025, time.March, 4, 22, 10, 0, 0, time.UTC)
	assert.True(t, date(2025, time.March, 4).Equal(Truncate(in)))
}
