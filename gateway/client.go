// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/luxfi/fhevm/cache"
	"github.com/luxfi/fhevm/engine"
)

const (
	DefaultKeyTTL  = 10 * time.Minute
	maxBodySize    = 64 << 20
	defaultTimeout = 30 * time.Second
)

var errNoPublicKey = errors.New("gateway advertises no public key")

// Client talks to one gateway.
type Client struct {
	baseURL string
	http    *http.Client
	keys    *cache.TTLCache[string, *KeyURLResult]
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithKeyCache shares a key cache between clients.
func WithKeyCache(c *cache.TTLCache[string, *KeyURLResult]) ClientOption {
	return func(cl *Client) {
		cl.keys = c
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		keys:    cache.NewTTLCache[string, *KeyURLResult](DefaultKeyTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// KeyURL returns the network key description, cached for DefaultKeyTTL.
func (c *Client) KeyURL(ctx context.Context) (*KeyURLResult, error) {
	return c.keys.Get(ctx, c.baseURL, func(ctx context.Context, _ string) (*KeyURLResult, error) {
		var res Envelope[*KeyURLResult]
		if err := c.do(ctx, http.MethodGet, KeyURLPath, nil, &res); err != nil {
			return nil, err
		}
		if res.Response == nil {
			return nil, errNoPublicKey
		}
		return res.Response, nil
	}, false)
}

// PublicKey resolves the network FHE public key, downloading it when the
// gateway only advertises its location.
func (c *Client) PublicKey(ctx context.Context) ([]byte, error) {
	info, err := c.KeyURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrPublicKeyFetch, err)
	}
	if len(info.FheKeyInfo) == 0 {
		return nil, fmt.Errorf("%w: %w", engine.ErrPublicKeyFetch, errNoPublicKey)
	}
	ref := info.FheKeyInfo[0].FhePublicKey
	if len(ref.Data) > 0 {
		return ref.Data, nil
	}
	var lastErr error = errNoPublicKey
	for _, u := range ref.URLs {
		pk, err := c.download(ctx, u)
		if err == nil {
			return pk, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", engine.ErrPublicKeyFetch, lastErr)
}

// InputProof submits ciphertexts for verification.
func (c *Client) InputProof(ctx context.Context, req *InputProofRequest) (*InputProofResult, error) {
	var res Envelope[*InputProofResult]
	if err := c.do(ctx, http.MethodPost, InputProofPath, req, &res); err != nil {
		return nil, err
	}
	if res.Response == nil {
		return nil, errors.New("empty input proof response")
	}
	return res.Response, nil
}

// UserDecrypt requests a re-encryption of a handle.
func (c *Client) UserDecrypt(ctx context.Context, req *UserDecryptRequest) (*UserDecryptResult, error) {
	var res Envelope[*UserDecryptResult]
	if err := c.do(ctx, http.MethodPost, UserDecryptPath, req, &res); err != nil {
		return nil, err
	}
	if res.Response == nil {
		return nil, errors.New("empty user decrypt response")
	}
	return res.Response, nil
}

// Health returns nil when the gateway reports itself up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, HealthPath, nil, nil)
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "/") {
		rawURL = c.baseURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func statusError(method, path string, code int, raw []byte) error {
	var e ErrorResponse
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	err := fmt.Errorf("%s %s: %d %s", method, path, code, msg)
	switch code {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", engine.ErrUnauthorized, err)
	case http.StatusNotFound:
		if path == UserDecryptPath {
			return fmt.Errorf("%w: %w", engine.ErrUnknownHandle, err)
		}
	case http.StatusBadRequest:
		if path == InputProofPath {
			return fmt.Errorf("%w: %w", engine.ErrInvalidProof, err)
		}
	}
	return err
}

// KeyFetcher resolves public keys for arbitrary gateways, sharing one cache.
type KeyFetcher struct {
	http *http.Client
	keys *cache.TTLCache[string, *KeyURLResult]
}

func NewKeyFetcher(httpClient *http.Client, ttl time.Duration) *KeyFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &KeyFetcher{
		http: httpClient,
		keys: cache.NewTTLCache[string, *KeyURLResult](ttl),
	}
}

// Client returns a client for gatewayURL backed by the shared cache.
func (f *KeyFetcher) Client(gatewayURL string) *Client {
	return NewClient(gatewayURL, WithHTTPClient(f.http), WithKeyCache(f.keys))
}

func (f *KeyFetcher) FetchPublicKey(ctx context.Context, gatewayURL string) ([]byte, error) {
	return f.Client(gatewayURL).PublicKey(ctx)
}
