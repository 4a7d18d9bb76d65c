package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbeHealthRecognizesOkBody(t *testing.T) {
	cases := []struct {
		body   string
		status int
		want   bool
	}{
		{`{"status":"ok"}`, http.StatusOK, true},
		{`{"status":"OK"}`, http.StatusOK, true},
		{`{"status":"loading"}`, http.StatusOK, false},
		{`{"status":"ok"}`, http.StatusServiceUnavailable, false},
		{`not json`, http.StatusOK, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		got := probeHealth(context.Background(), srv.Client(), srv.URL)
		srv.Close()
		if got != tc.want {
			t.Fatalf("body=%q status=%d: expected %v got %v", tc.body, tc.status, tc.want, got)
		}
	}
}
