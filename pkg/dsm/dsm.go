package dsm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	authPath   = "/webapi/auth.cgi"
	entryPath  = "/webapi/entry.cgi"
	authAPI    = "SYNO.API.Auth"
	systemAPI  = "SYNO.Core.System"
	sessionTag = "DownloadStation"
)

type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "dsm login failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type MetricsError struct {
	Err error
}

func (e *MetricsError) Error() string {
	return "dsm system info failed: " + e.Err.Error()
}

func (e *MetricsError) Unwrap() error {
	return e.Err
}

type Credentials struct {
	Host     string
	Account  string
	Password string
}

// Client talks to the DSM web API. The device serves a self-signed
// certificate, so certificate verification is switched off for it.
type Client struct {
	Credentials Credentials
	HTTPClient  *http.Client
}

func NewClient(creds Credentials, timeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &Client{
		Credentials: creds,
		HTTPClient:  &http.Client{Transport: transport, Timeout: timeout},
	}
}

type authResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Sid string `json:"sid"`
	} `json:"data"`
}

type systemInfoResponse struct {
	Data struct {
		SysTemp *int `json:"sys_temp"`
	} `json:"data"`
}

// Login opens a session and returns its sid. One attempt, no retries.
func (c *Client) Login(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("api", authAPI)
	params.Set("version", "6")
	params.Set("method", "login")
	params.Set("account", c.Credentials.Account)
	params.Set("passwd", c.Credentials.Password)
	params.Set("session", sessionTag)
	params.Set("format", "sid")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(authPath)+"?"+params.Encode(), nil)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	var body authResponse
	if err := c.do(req, &body); err != nil {
		return "", &AuthError{Err: err}
	}
	if body.Data.Sid == "" {
		return "", &AuthError{Err: errors.New("response has no data.sid")}
	}
	return body.Data.Sid, nil
}

// Logout ends the session opened by Login.
func (c *Client) Logout(ctx context.Context, sid string) error {
	params := url.Values{}
	params.Set("api", authAPI)
	params.Set("version", "6")
	params.Set("method", "logout")
	params.Set("session", sessionTag)
	params.Set("_sid", sid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(authPath)+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return errors.Wrap(c.do(req, nil), "logout")
}

// SystemTemperature returns data.sys_temp from SYNO.Core.System info.
// A response without the field yields 0.
func (c *Client) SystemTemperature(ctx context.Context, sid string) (int, error) {
	form := url.Values{}
	form.Set("api", systemAPI)
	form.Set("method", "info")
	form.Set("version", "1")
	form.Set("_sid", sid)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(entryPath), strings.NewReader(form.Encode()))
	if err != nil {
		return 0, &MetricsError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body systemInfoResponse
	if err := c.do(req, &body); err != nil {
		return 0, &MetricsError{Err: err}
	}
	if body.Data.SysTemp == nil {
		return 0, nil
	}
	return *body.Data.SysTemp, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.Credentials.Host, "/") + path
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// The query string carries the password or the sid.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return errors.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
