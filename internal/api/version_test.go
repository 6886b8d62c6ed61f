package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler_Payload(t *testing.T) {
	tests := []struct {
		name                string
		version, commit, at string
		want                versionResponse
	}{
		{
			name:    "ldflags set",
			version: "0.3.1", commit: "9f2c1e0", at: "2026-09-30T08:00:00Z",
			want: versionResponse{Version: "0.3.1", GitCommit: "9f2c1e0", BuildDate: "2026-09-30T08:00:00Z"},
		},
		{
			name: "local build",
			want: versionResponse{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			VersionHandler(tt.version, tt.commit, tt.at).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got versionResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			tt.want.GoVersion = runtime.Version()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionHandler_Methods(t *testing.T) {
	handler := VersionHandler("1.0.0", "abc", "today")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, "/version", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "GET, HEAD", w.Header().Get("Allow"), method)
	}
}
