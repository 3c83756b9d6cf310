package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

const testToken = "session-token-123"

// fakeService implements enough of the sign-in and metadata endpoints to
// drive the client end to end.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/3.21/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Credentials struct {
				TokenName   string `json:"personalAccessTokenName"`
				TokenSecret string `json:"personalAccessTokenSecret"`
				Site        struct {
					ContentURL string `json:"contentUrl"`
				} `json:"site"`
			} `json:"credentials"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload.Credentials.TokenName != "ci-token" || payload.Credentials.TokenSecret != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]interface{}{
				"token": testToken,
				"site":  map[string]string{"id": "site-luid-1"},
			},
		})
	})

	mux.HandleFunc("/api/metadata/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tableau-Auth") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		var data interface{}
		switch {
		case strings.Contains(payload.Query, "GetWorkbook"):
			assert.Equal(t, "Superstore", payload.Variables["name"])
			data = map[string]interface{}{
				"workbooks": []map[string]string{{"luid": "wb-luid-1", "name": "Superstore"}},
			}
		case strings.Contains(payload.Query, "GetDatasources"):
			assert.Equal(t, "wb-luid-1", payload.Variables["workbookLuid"])
			data = map[string]interface{}{
				"embeddedDatasources": []map[string]interface{}{
					{
						"name":        "Sample Data",
						"hasExtracts": true,
						"fields": []map[string]interface{}{
							{"name": "Sales", "dataType": "REAL", "role": "MEASURE", "aggregation": "SUM"},
							{"name": "Region", "dataType": "STRING", "role": "DIMENSION"},
							{"name": "Profit Ratio", "dataType": "REAL", "role": "MEASURE",
								"isCalculated": true, "formula": "SUM([Profit])/SUM([Sales])"},
						},
					},
				},
			}
		case strings.Contains(payload.Query, "GetSheets"):
			data = map[string]interface{}{
				"sheets": []map[string]interface{}{
					{
						"name": "Overview",
						"sheetFieldInstances": []map[string]string{
							{"name": "Sales"}, {"name": "Region"}, {"name": "Sales"},
						},
					},
				},
			}
		case strings.Contains(payload.Query, "GetDashboards"):
			data = map[string]interface{}{
				"dashboards": []map[string]interface{}{
					{"name": "Summary", "containsSheets": []map[string]string{{"name": "Overview"}}},
				},
			}
		default:
			t.Errorf("Unexpected query: %s", payload.Query)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:     baseURL,
		Site:        "analytics",
		TokenName:   "ci-token",
		TokenSecret: "s3cret",
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresConfiguration(t *testing.T) {
	_, err := NewClient(Options{TokenName: "a", TokenSecret: "b"})
	assert.ErrorIs(t, err, twbmeta.ErrInvalidConfig)

	_, err = NewClient(Options{BaseURL: "https://tableau.example.com"})
	assert.ErrorIs(t, err, twbmeta.ErrInvalidConfig)
}

func TestClient_Authenticate(t *testing.T) {
	srv := fakeService(t)
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, testToken, c.authToken)
	assert.Equal(t, "site-luid-1", c.siteLUID)
}

func TestClient_AuthenticateRejected(t *testing.T) {
	srv := fakeService(t)
	c, err := NewClient(Options{
		BaseURL:     srv.URL,
		TokenName:   "ci-token",
		TokenSecret: "wrong",
	})
	require.NoError(t, err)

	err = c.Authenticate(context.Background())
	assert.ErrorIs(t, err, twbmeta.ErrServerUnavailable)
}

func TestClient_AuthenticateServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := newTestClient(t, srv.URL)

	err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, twbmeta.ErrServerUnavailable)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/3.21/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]interface{}{"token": testToken},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestClient_FetchWorkbook(t *testing.T) {
	srv := fakeService(t)
	c := newTestClient(t, srv.URL)

	m, err := c.FetchWorkbook(context.Background(), "Superstore")
	require.NoError(t, err)

	assert.Equal(t, "Superstore", m.Name)
	require.Len(t, m.Datasources, 1)

	ds := m.Datasources[0]
	assert.Equal(t, "Sample Data", ds.Name)
	assert.True(t, ds.HasExtract)
	require.Len(t, ds.Fields, 2)
	assert.Equal(t, twbmeta.DataTypeReal, ds.Fields[0].DataType)
	assert.Equal(t, twbmeta.RoleMeasure, ds.Fields[0].Role)
	assert.Equal(t, twbmeta.AggSum, ds.Fields[0].DefaultAggregation)
	require.Len(t, ds.CalculatedFields, 1)
	assert.Equal(t, "Profit Ratio", ds.CalculatedFields[0].Name)
	assert.Equal(t, "SUM([Profit])/SUM([Sales])", ds.CalculatedFields[0].Formula)

	require.Len(t, m.Sheets, 1)
	assert.Equal(t, []string{"Sales", "Region"}, m.Sheets[0].AllFieldsUsed)

	require.Len(t, m.Dashboards, 1)
	assert.Equal(t, []string{"Overview"}, m.Dashboards[0].Worksheets)

	assert.Equal(t, 2, m.TotalFields)
	assert.Equal(t, 1, m.TotalCalculatedFields)
}

func TestClient_FetchWorkbookNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/3.21/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]interface{}{"token": testToken},
		})
	})
	mux.HandleFunc("/api/metadata/graphql", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"workbooks": []interface{}{}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchWorkbook(context.Background(), "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestClient_GraphQLErrorsSurface(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/3.21/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]interface{}{"token": testToken},
		})
	})
	mux.HandleFunc("/api/metadata/graphql", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "field does not exist"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchWorkbook(context.Background(), "Superstore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field does not exist")
}
