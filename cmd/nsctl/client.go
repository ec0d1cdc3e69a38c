package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/record"
	"github.com/danmuck/nslisting/internal/thriftgen"
)

// client talks to nsd using one wire protocol for both directions.
type client struct {
	base  string
	token string
	codec protocol.Factory
	http  *http.Client
}

// newHTTPClient trusts caFile in place of the system roots when it is set.
func newHTTPClient(p profile) (*http.Client, error) {
	hc := &http.Client{Timeout: p.Timeout}
	if p.CAFile == "" {
		return hc, nil
	}
	pemData, err := os.ReadFile(p.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("ca_file %s holds no certificates", p.CAFile)
	}
	hc.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
	}
	return hc, nil
}

func (c *client) endpoint(path string, query url.Values) string {
	return c.base + path + "?" + query.Encode()
}

func (c *client) list(ctx context.Context, ns string) ([]*thriftgen.NamespaceListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/v1/namespaces/listing", url.Values{"ns": {ns}}), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", c.codec.ContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	return thriftgen.ReadNamespaceListings(c.codec.NewReader(resp.Body, protocol.DefaultLimits()))
}

func (c *client) put(ctx context.Context, ns string, l *thriftgen.NamespaceListing) error {
	body, err := record.Marshal(l, c.codec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.endpoint("/v1/namespaces/listing", url.Values{"ns": {ns}}), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", c.codec.ContentType())
	return c.expectOK(req)
}

func (c *client) remove(ctx context.Context, ns, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.endpoint("/v1/namespaces/listing", url.Values{"ns": {ns}, "name": {name}}), nil)
	if err != nil {
		return err
	}
	return c.expectOK(req)
}

func (c *client) mkdir(ctx context.Context, ns string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("/v1/namespaces/mkdir", url.Values{"path": {ns}}), nil)
	if err != nil {
		return err
	}
	return c.expectOK(req)
}

func (c *client) expectOK(req *http.Request) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("nsd %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("nsd %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
}
