package sheets

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestReadRequestsUnformattedNumbers(t *testing.T) {
	var query string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		query = r.URL.RawQuery
		body := `{"range":"Opgave!A1:J2","majorDimension":"ROWS","values":[` +
			`["Date","Customer Name","Price"],` +
			`["2025-09-01","Acme ApS",1234.5,1500000,12345678,"Fix printer",true]]}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})}

	svc, err := NewSheetsService(context.Background(), "sheet-id", client, time.Second)
	require.NoError(t, err)

	rows, err := svc.Read(context.Background(), "Opgave!A:J")
	require.NoError(t, err)

	assert.Contains(t, query, "valueRenderOption=UNFORMATTED_VALUE")
	assert.Contains(t, query, "dateTimeRenderOption=FORMATTED_STRING")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2025-09-01", "Acme ApS", "1234.5", "1500000", "12345678", "Fix printer", "true"}, rows[1])
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{float64(500), "500"},
		{1234.5, "1234.5"},
		{float64(12345678), "12345678"},
		{"1.500", "1.500"},
		{false, "false"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellText(tt.in))
	}
}
