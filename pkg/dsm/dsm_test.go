package dsm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Credentials{Host: url, Account: "admin", Password: "p@ss word"}, 2*time.Second)
}

func TestLoginOverSelfSignedTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/webapi/auth.cgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "SYNO.API.Auth", q.Get("api"))
		assert.Equal(t, "6", q.Get("version"))
		assert.Equal(t, "login", q.Get("method"))
		assert.Equal(t, "admin", q.Get("account"))
		assert.Equal(t, "p@ss word", q.Get("passwd"))
		assert.Equal(t, "DownloadStation", q.Get("session"))
		assert.Equal(t, "sid", q.Get("format"))
		w.Write([]byte(`{"data":{"sid":"abc123"},"success":true}`))
	}))
	defer srv.Close()

	sid, err := newTestClient(srv.URL).Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", sid)
}

func TestLoginFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"missing sid": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"code":400},"success":false}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Login(context.Background())
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
		})
	}
}

func TestLoginUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestTransportErrorsHideCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Credentials{Host: url, Account: "admin", Password: "hunter2-SECRET"}, time.Second)
	_, err := client.Login(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2-SECRET")
	assert.Contains(t, err.Error(), url+"/webapi/auth.cgi")

	err = client.Logout(context.Background(), "sid-abc123")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sid-abc123")
}

func TestSystemTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webapi/entry.cgi", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "SYNO.Core.System", r.PostForm.Get("api"))
		assert.Equal(t, "info", r.PostForm.Get("method"))
		assert.Equal(t, "1", r.PostForm.Get("version"))
		assert.Equal(t, "abc123", r.PostForm.Get("_sid"))
		w.Write([]byte(`{"data":{"sys_temp":40,"model":"DS918+"},"success":true}`))
	}))
	defer srv.Close()

	temp, err := newTestClient(srv.URL).SystemTemperature(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, 40, temp)
}

func TestSystemTemperatureMissingFieldIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":119},"success":false}`))
	}))
	defer srv.Close()

	temp, err := newTestClient(srv.URL).SystemTemperature(context.Background(), "expired")
	require.NoError(t, err)
	assert.Equal(t, 0, temp)
}

func TestSystemTemperatureHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SystemTemperature(context.Background(), "abc123")
	var metricsErr *MetricsError
	require.ErrorAs(t, err, &metricsErr)
}

func TestSystemTemperatureTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(Credentials{Host: srv.URL}, 50*time.Millisecond)
	_, err := client.SystemTemperature(context.Background(), "abc123")
	var metricsErr *MetricsError
	require.ErrorAs(t, err, &metricsErr)
}

func TestLogout(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.URL.Query().Get("method")
		assert.Equal(t, "abc123", r.URL.Query().Get("_sid"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).Logout(context.Background(), "abc123"))
	assert.Equal(t, "logout", method)
}
