package statusapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProgress struct{ block uint64 }

func (f fakeProgress) StartBlock() uint64 { return f.block }

func TestHealthz_ReturnsHealthyWithNoCheckerWired(t *testing.T) {
	h := NewHandlers(nil, fakeProgress{block: 5}, "dot-20")
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "healthy")
}

func TestStatus_ReportsCurrentBlock(t *testing.T) {
	h := NewHandlers(nil, fakeProgress{block: 42}, "dot-20")
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"current_block":42`)
	require.Contains(t, rec.Body.String(), `"protocol":"dot-20"`)
}
