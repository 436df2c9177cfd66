package params

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ir-api/internal/shared/storage/specification"
)

func TestBindPage(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  specification.Page
	}{
		{"defaults", "", specification.Page{Direction: specification.Desc}},
		{"all set", "limit=4&offset=10&order_by=run_start&order_direction=asc",
			specification.Page{Limit: 4, Offset: 10, OrderBy: "run_start", Direction: specification.Asc}},
		{"zero values", "limit=0&offset=0", specification.Page{Direction: specification.Desc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/runs?"+tt.query, nil)
			page, err := BindPage(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page)
		})
	}
}

func TestBindPageInvalid(t *testing.T) {
	for _, query := range []string{"limit=abc", "offset=-1", "limit=-5", "order_direction=sideways"} {
		r := httptest.NewRequest(http.MethodGet, "/runs?"+query, nil)
		_, err := BindPage(r)
		require.Error(t, err, query)
		assert.True(t, errors.Is(err, ErrInvalidParameter), query)
		assert.True(t, errdefs.IsInvalidArgument(err), query)
	}
}

func TestReductionID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/instrument/mari/script", nil)
	id, err := ReductionID(r)
	require.NoError(t, err)
	assert.Nil(t, id)

	r = httptest.NewRequest(http.MethodGet, "/instrument/mari/script?reduction_id=42", nil)
	id, err = ReductionID(r)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(42), *id)

	r = httptest.NewRequest(http.MethodGet, "/instrument/mari/script?reduction_id=x", nil)
	_, err = ReductionID(r)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestPathParams(t *testing.T) {
	mux := http.NewServeMux()
	var (
		id   int64
		name string
		err  error
	)
	mux.HandleFunc("GET /reduction/{reduction_id}", func(w http.ResponseWriter, r *http.Request) {
		id, err = PathInt64(r, "reduction_id")
	})
	mux.HandleFunc("GET /instrument/{instrument}", func(w http.ResponseWriter, r *http.Request) {
		name, err = PathString(r, "instrument")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reduction/5001", nil))
	require.NoError(t, err)
	assert.Equal(t, int64(5001), id)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reduction/abc", nil))
	assert.True(t, errdefs.IsInvalidArgument(err))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/instrument/mari", nil))
	require.NoError(t, err)
	assert.Equal(t, "mari", name)
}
