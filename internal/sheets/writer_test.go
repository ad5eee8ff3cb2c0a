package sheets

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/packflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
)

func sampleTable(t *testing.T, columns []string) *model.Table {
	t.Helper()
	table := model.NewTable("mass_balance", columns)
	day := time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		row := make([]any, len(columns))
		row[0] = day
		for j := 1; j < len(columns); j++ {
			row[j] = float64(i + j)
		}
		require.NoError(t, table.Append(row))
	}
	return table
}

func TestTableValues(t *testing.T) {
	table := model.NewTable("time_trace", []string{"FECHA", "QR", "KG", "SEMANA", "PCT"})
	require.NoError(t, table.Append([]any{
		time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC),
		"A1",
		12.5,
		int64(28),
		model.NewRatio(1, 4),
	}))
	require.NoError(t, table.Append([]any{nil, "A2", 0.0, int64(28), model.NewRatio(1, 0)}))

	values := tableValues(table)
	require.Len(t, values, 3)
	assert.Equal(t, []any{"FECHA", "QR", "KG", "SEMANA", "PCT"}, values[0])
	assert.Equal(t, []any{"2025-07-11", "A1", 12.5, int64(28), 0.25}, values[1])
	assert.Equal(t, []any{"", "A2", 0.0, int64(28), ""}, values[2])
}

func TestFormatRequests(t *testing.T) {
	tab := &sheets.Sheet{
		Properties:   &sheets.SheetProperties{SheetId: 42, Title: "mass_balance"},
		BandedRanges: []*sheets.BandedRange{{BandedRangeId: 7}},
	}

	t.Run("valid headers get banding", func(t *testing.T) {
		table := sampleTable(t, []string{"FECHA", "KG PROCESADOS", "KG DESCARTE"})
		requests := formatRequests(tab, table)

		require.Len(t, requests, 5)
		require.NotNil(t, requests[0].DeleteBanding)
		assert.Equal(t, int64(7), requests[0].DeleteBanding.BandedRangeId)

		header := requests[1].RepeatCell
		require.NotNil(t, header)
		assert.Equal(t, int64(42), header.Range.SheetId)
		assert.Equal(t, int64(3), header.Range.EndColumnIndex)
		assert.True(t, header.Cell.UserEnteredFormat.TextFormat.Bold)
		assert.Equal(t, headerColor, header.Cell.UserEnteredFormat.BackgroundColor)

		require.NotNil(t, requests[2].UpdateSheetProperties)
		assert.Equal(t, int64(1), requests[2].UpdateSheetProperties.Properties.GridProperties.FrozenRowCount)
		require.NotNil(t, requests[3].AutoResizeDimensions)

		banding := requests[4].AddBanding
		require.NotNil(t, banding)
		assert.Equal(t, int64(3), banding.BandedRange.Range.EndRowIndex)
	})

	t.Run("invalid headers skip banding", func(t *testing.T) {
		table := sampleTable(t, []string{"FECHA", "CAJA 4.4OZ C/E", "KG"})
		require.False(t, table.HeadersValid)

		requests := formatRequests(tab, table)
		require.Len(t, requests, 4)
		for _, r := range requests {
			assert.Nil(t, r.AddBanding)
		}
	})
}

func TestTabRange(t *testing.T) {
	assert.Equal(t, "'mass_balance'", tabRange("mass_balance", ""))
	assert.Equal(t, "'PRODUCTO TERMINADO'!A1001", tabRange("PRODUCTO TERMINADO", "A1001"))
	assert.Equal(t, "'O''Brien'", tabRange("O'Brien", ""))
}

func TestFindTab(t *testing.T) {
	tabs := []*sheets.Sheet{
		{Properties: &sheets.SheetProperties{SheetId: 1, Title: "time_trace"}},
		{Properties: &sheets.SheetProperties{SheetId: 2, Title: "mass_balance"}},
	}
	require.NotNil(t, findTab(tabs, "mass_balance"))
	assert.Equal(t, int64(2), findTab(tabs, "mass_balance").Properties.SheetId)
	assert.Nil(t, findTab(tabs, "production_summary"))
}

func TestValuesToStrings(t *testing.T) {
	values := [][]any{
		{"FECHA", "QR", "KILOS BRUTO"},
		{"11/07/2025", " A1 ", 1234.5},
		{"12/07/2025"},
	}
	got := valuesToStrings(values)
	assert.Equal(t, [][]string{
		{"FECHA", "QR", "KILOS BRUTO"},
		{"11/07/2025", "A1", "1234.5"},
		{"12/07/2025", "", ""},
	}, got)
	assert.Nil(t, valuesToStrings(nil))
}

func TestCallbackCode(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr string
	}{
		{name: "valid", url: "/callback?state=s1&code=abc", want: "abc"},
		{name: "state mismatch", url: "/callback?state=other&code=abc", wantErr: "state mismatch"},
		{name: "no code", url: "/callback?state=s1", wantErr: "no authorization code"},
		{name: "denied", url: "/callback?error=access_denied", wantErr: "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := callbackCode(httptest.NewRequest("GET", tt.url, nil), "s1")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
