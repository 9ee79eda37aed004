package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	model_reading "nas-collector/models/reading"

	client "github.com/influxdata/influxdb/client/v2"
	"github.com/pkg/errors"
)

type JSONBinSink struct {
	URL    string
	Client *http.Client
}

func NewJSONBinSink(server, secret string, timeout time.Duration) *JSONBinSink {
	return &JSONBinSink{
		URL:    strings.TrimRight(server, "/") + "/bins/" + secret,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s *JSONBinSink) Name() string { return "jsonbin" }

func (s *JSONBinSink) Send(ctx context.Context, r model_reading.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode reading")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return post(s.Client, req)
}

type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	HostTag     string
}

// InfluxSink writes line protocol to the InfluxDB v2 write API.
type InfluxSink struct {
	Config InfluxConfig
	Client *http.Client
}

func NewInfluxSink(config InfluxConfig, timeout time.Duration) *InfluxSink {
	return &InfluxSink{Config: config, Client: &http.Client{Timeout: timeout}}
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) WriteURL() string {
	params := url.Values{}
	params.Set("org", s.Config.Org)
	params.Set("bucket", s.Config.Bucket)
	params.Set("precision", "ns")
	return strings.TrimRight(s.Config.URL, "/") + "/api/v2/write?" + params.Encode()
}

// Lines renders one point per known scalar, ordered by field name:
// <measurement>,host=<tag>,type=<field> value=<n>i <unix ns>
func (s *InfluxSink) Lines(r model_reading.Reading) ([]string, error) {
	scalars := r.Scalars()
	fields := make([]string, 0, len(scalars))
	for field := range scalars {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		pt, err := client.NewPoint(
			s.Config.Measurement,
			map[string]string{"host": s.Config.HostTag, "type": field},
			map[string]interface{}{"value": scalars[field]},
			r.Time,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "point %s", field)
		}
		lines = append(lines, pt.String())
	}
	return lines, nil
}

func (s *InfluxSink) Send(ctx context.Context, r model_reading.Reading) error {
	lines, err := s.Lines(r)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	body := strings.Join(lines, "\n")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WriteURL(), strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+s.Config.Token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return post(s.Client, req)
}

func post(c *http.Client, req *http.Request) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %s: %s %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(msg)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
