package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		token    string
		preset   string
		expected string
	}{
		{name: "adds token", token: "abc", expected: "Bearer abc"},
		{name: "keeps existing header", token: "abc", preset: "Basic xyz", expected: "Basic xyz"},
		{name: "empty token", token: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &http.Client{Transport: ChainClient(nil, BearerAuth(StaticToken(tt.token)))}
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			require.NoError(t, err)
			if tt.preset != "" {
				req.Header.Set("Authorization", tt.preset)
			}
			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.expected, gotAuth)
			if tt.preset == "" {
				assert.Empty(t, req.Header.Get("Authorization"), "original request must not be mutated")
			}
		})
	}
}

func TestChainClientOrder(t *testing.T) {
	var order []string
	mark := func(name string) ClientMiddleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: 204, Body: io.NopCloser(http.NoBody)}, nil
	})

	rt := ChainClient(base, mark("first"), mark("second"))
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "base"}, order)
}

func TestServerMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := Recovery(logger)(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/panic" {
			panic("boom")
		}
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tea", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, http.StatusTeapot, hook.LastEntry().Data["status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestClientLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	base := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(http.NoBody)}, nil
	})
	rt := ChainClient(base, ClientLogging(logger))
	req, _ := http.NewRequest(http.MethodPost, "http://example.invalid/agent", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "POST", hook.LastEntry().Data["method"])
}
