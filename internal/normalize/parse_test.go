package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr error
	}{
		{name: "decimal comma", input: "3,5", want: 3.5},
		{name: "decimal point", input: "2.25", want: 2.25},
		{name: "thousands and comma", input: "1.234,5", want: 1234.5},
		{name: "thousands comma and point", input: "1,234.5", want: 1234.5},
		{name: "percent suffix", input: "85,5%", want: 85.5},
		{name: "surrounding spaces", input: "  12 ", want: 12},
		{name: "blank", input: " ", wantErr: ErrBlank},
		{name: "garbage", input: "abc", wantErr: ErrUnparsable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseInteger(t *testing.T) {
	got, err := ParseInteger("28,0")
	require.NoError(t, err)
	assert.Equal(t, int64(28), got)

	_, err = ParseInteger("28,5")
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestParseDate(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		want    time.Time
		name    string
		input   string
		wantErr bool
	}{
		{name: "day first slash", input: "11/07/2025", want: date(2025, 7, 11)},
		{name: "day first dash", input: "11-07-2025", want: date(2025, 7, 11)},
		{name: "iso", input: "2025-07-11", want: date(2025, 7, 11)},
		{name: "iso with time", input: "2025-07-11 00:00:00", want: date(2025, 7, 11)},
		{name: "month first fallback", input: "07/25/2025", want: date(2025, 7, 25)},
		{name: "two digit year", input: "1/8/25", want: date(2025, 8, 1)},
		{name: "serial number", input: "45849", want: date(2025, 7, 11)},
		{name: "invalid day", input: "31/02/2025", wantErr: true},
		{name: "text", input: "ayer", wantErr: true},
		{name: "blank", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "full", input: "14:05:09", want: "14:05:09"},
		{name: "hours minutes padded", input: "7:05", want: "07:05:00"},
		{name: "embedded in datetime", input: "1900-01-01 13:45:00", want: "13:45:00"},
		{name: "day fraction", input: "0,5", want: "12:00:00"},
		{name: "out of range", input: "25:00", wantErr: true},
		{name: "three digit hour", input: "123:45", wantErr: true},
		{name: "colon separated date", input: "2025:07:11", wantErr: true},
		{name: "too many fields", input: "10:20:30:40", wantErr: true},
		{name: "trailing millis", input: "08:15:00.000", want: "08:15:00"},
		{name: "text", input: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCorrectAfternoon(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "09:15:00", want: "21:15:00"},
		{input: "00:30:00", want: "12:30:00"},
		{input: "11:59:59", want: "23:59:59"},
		{input: "23:15:00", want: "23:15:00"},
		{input: "00:15:00", want: "12:15:00"},
		{input: "12:00:00", want: "12:00:00"},
		{input: "15:20:00", want: "15:20:00"},
		{input: "bad", want: "bad"},
		{input: "9:15", want: "9:15"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrectAfternoon(tt.input))
		})
	}
}
