package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

type apiCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeSheetsAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	tabs   []string
	values string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		_, _ = io.WriteString(w, f.values)
	case r.Method == http.MethodGet:
		type props struct {
			SheetID int64  `json:"sheetId"`
			Title   string `json:"title"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		var resp struct {
			Sheets []sheet `json:"sheets"`
		}
		for i, tab := range f.tabs {
			resp.Sheets = append(resp.Sheets, sheet{Properties: props{SheetID: int64(i), Title: tab}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func (f *fakeSheetsAPI) mutations() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func newTestGoogleClient(t *testing.T, api *fakeSheetsAPI) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewGoogleClientWithOptions(context.Background(), 0, zap.NewNop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestGoogleClient_ReadRange(t *testing.T) {
	api := &fakeSheetsAPI{values: `{"range":"config!A2:B100","values":[["business_name","Acme"],["rate",5],["solo"]]}`}
	c := newTestGoogleClient(t, api)

	rows, err := c.ReadRange(context.Background(), "cfg-sheet", "config!A2:B100")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"business_name", "Acme"}, {"rate", "5"}, {"solo"}}, rows)
}

func TestGoogleClient_InsertRowBelowHeader(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"Sheet1", "Archive"}}
	c := newTestGoogleClient(t, api)

	err := c.InsertRowBelowHeader(context.Background(), "subs", "Sheet1", []string{"1/2/2026, 3:04:05 PM", "Ada"})
	require.NoError(t, err)

	calls := api.mutations()
	require.Len(t, calls, 2)

	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.True(t, strings.HasSuffix(calls[0].Path, "subs:batchUpdate"))
	assert.Contains(t, calls[0].Body, `"sheetId":0`)
	assert.Contains(t, calls[0].Body, `"startIndex":1`)
	assert.Contains(t, calls[0].Body, `"endIndex":2`)

	assert.Equal(t, http.MethodPut, calls[1].Method)
	assert.Contains(t, calls[1].Path, "'Sheet1'!A2")
	assert.Contains(t, calls[1].Query, "valueInputOption=USER_ENTERED")
	assert.Contains(t, calls[1].Body, "Ada")
}

func TestGoogleClient_InsertRowMissingTab(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"Other"}}
	c := newTestGoogleClient(t, api)

	err := c.InsertRowBelowHeader(context.Background(), "subs", "Sheet1", []string{"x"})
	require.ErrorIs(t, err, ErrTabNotFound)
	assert.Empty(t, api.mutations())
}

func TestGoogleClient_AppendRow(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestGoogleClient(t, api)

	require.NoError(t, c.AppendRow(context.Background(), "hits", "hit_counter", make([]string, 11)))

	calls := api.mutations()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Path, "'hit_counter'!A:K:append")
	assert.Contains(t, calls[0].Query, "insertDataOption=INSERT_ROWS")
	assert.Contains(t, calls[0].Query, "valueInputOption=RAW")
}

func TestGoogleClient_EnsureTab(t *testing.T) {
	t.Run("existing tab is left alone", func(t *testing.T) {
		api := &fakeSheetsAPI{tabs: []string{"hit_counter"}}
		c := newTestGoogleClient(t, api)

		require.NoError(t, c.EnsureTab(context.Background(), "hits", "hit_counter", []string{"Date"}))
		assert.Empty(t, api.mutations())
	})

	t.Run("missing tab is created with header", func(t *testing.T) {
		api := &fakeSheetsAPI{tabs: []string{"Sheet1"}}
		c := newTestGoogleClient(t, api)

		require.NoError(t, c.EnsureTab(context.Background(), "hits", "hit_counter", []string{"Date", "Tenant ID"}))

		calls := api.mutations()
		require.Len(t, calls, 2)
		assert.Contains(t, calls[0].Body, `"addSheet"`)
		assert.Contains(t, calls[0].Body, `"title":"hit_counter"`)
		assert.Contains(t, calls[1].Path, "'hit_counter'!A1")
		assert.Contains(t, calls[1].Body, "Tenant ID")
	})
}

func TestLoadCredentials(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), configtypes.SheetsConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials are not configured")
}
