package bonsai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/remote"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
	"github.com/bacalhau-project/callback-relay/pkg/version"
)

const (
	apiKeyHeader  = "x-api-key"
	versionHeader = "client_version"

	defaultTimeout       = 300 * time.Second
	defaultDownloadRetry = 3
	// error bodies are only kept for logging
	maxErrorBody = 4 << 10
)

// Client talks to the proving service REST API.
type Client struct {
	BaseURI        *url.URL
	DefaultHeaders map[string]string
	Client         *http.Client
	downloader     *retryablehttp.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the client used for API calls and uploads.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.Client = c
		client.downloader.HTTPClient = c
	}
}

// WithDownloadRetries sets how many times a receipt download is retried.
func WithDownloadRetries(n int) ClientOption {
	return func(client *Client) {
		client.downloader.RetryMax = n
	}
}

// WithDownloadBackoff bounds the wait between receipt download attempts.
func WithDownloadBackoff(minWait, maxWait time.Duration) ClientOption {
	return func(client *Client) {
		client.downloader.RetryWaitMin = minWait
		client.downloader.RetryWaitMax = maxWait
	}
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	baseURI, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: defaultTimeout,
		Transport: otelhttp.NewTransport(nil,
			otelhttp.WithSpanOptions(
				trace.WithAttributes(attribute.String("service", "bonsai")),
			),
		),
	}
	downloader := retryablehttp.NewClient()
	downloader.HTTPClient = httpClient
	downloader.RetryMax = defaultDownloadRetry
	downloader.Logger = retryLogger{logger: log.Logger.With().Str("component", "bonsai").Logger()}

	c := &Client{
		BaseURI: baseURI,
		DefaultHeaders: map[string]string{
			apiKeyHeader:  cfg.APIKey,
			versionHeader: version.Get().GitVersion,
		},
		Client:     httpClient,
		downloader: downloader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UploadImage makes the image available to the service. The service answers
// 204 when it already has an image with that id.
func (c *Client) UploadImage(ctx context.Context, id image.ID, binary []byte) (bool, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/bonsai.Client.UploadImage")
	defer span.End()

	var res uploadResponse
	status, err := c.doGet(ctx, "images/upload/"+id.String(), &res)
	if err != nil {
		return false, telemetry.RecordErrorOnSpan(span)(err)
	}
	if status == http.StatusNoContent {
		return true, nil
	}
	if res.URL == "" {
		return false, telemetry.RecordErrorOnSpan(span)(fmt.Errorf("image upload for %s returned no url", id))
	}
	return false, telemetry.RecordErrorOnSpan(span)(c.put(ctx, res.URL, binary))
}

func (c *Client) UploadInput(ctx context.Context, input []byte) (string, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/bonsai.Client.UploadInput")
	defer span.End()

	var res uploadResponse
	if _, err := c.doGet(ctx, "inputs/upload", &res); err != nil {
		return "", telemetry.RecordErrorOnSpan(span)(err)
	}
	if res.URL == "" || res.UUID == "" {
		return "", telemetry.RecordErrorOnSpan(span)(fmt.Errorf("input upload returned an incomplete response"))
	}
	if err := c.put(ctx, res.URL, input); err != nil {
		return "", telemetry.RecordErrorOnSpan(span)(err)
	}
	return res.UUID, nil
}

func (c *Client) CreateSession(ctx context.Context, id image.ID, inputID string) (string, error) {
	var res createSessionResponse
	err := c.DoPost(ctx, "sessions/create", createSessionRequest{Image: id.String(), Input: inputID}, &res)
	if err != nil {
		return "", err
	}
	if res.UUID == "" {
		return "", fmt.Errorf("session creation returned no uuid")
	}
	return res.UUID, nil
}

func (c *Client) Status(ctx context.Context, handle string) (remote.SessionStatus, error) {
	var res sessionStatusResponse
	if _, err := c.doGet(ctx, "sessions/status/"+handle, &res); err != nil {
		return remote.SessionStatus{}, err
	}
	if res.ErrorMsg != "" {
		log.Ctx(ctx).Debug().Str("session", handle).Str("error_msg", res.ErrorMsg).Msg("session reported an error")
	}
	return remote.SessionStatus{Status: res.Status, ReceiptURL: res.ReceiptURL}, nil
}

// Download fetches a receipt. Transient failures are retried.
func (c *Client) Download(ctx context.Context, location string) ([]byte, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/bonsai.Client.Download")
	defer span.End()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(fmt.Errorf("bonsai: error creating download request: %w", err))
	}
	c.setHeaders(req.Header)

	res, err := c.downloader.Do(req)
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(err)
	}
	defer closeBody(res)
	if err = checkResponse(res); err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(err)
	}
	return telemetry.RecordErrorOnSpanTwo[[]byte](span)(io.ReadAll(res.Body))
}

func (c *Client) doGet(ctx context.Context, api string, resData any) (int, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/bonsai.Client.Get")
	defer span.End()

	addr := c.BaseURI.JoinPath(api).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return 0, fmt.Errorf("bonsai: error creating Get request: %w", err)
	}
	return c.do(req, resData)
}

func (c *Client) DoPost(ctx context.Context, api string, reqData, resData any) error {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/bonsai.Client.DoPost")
	defer span.End()

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(reqData); err != nil {
		return fmt.Errorf("bonsai: error encoding request body: %w", err)
	}

	addr := c.BaseURI.JoinPath(api).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr, &body)
	if err != nil {
		return fmt.Errorf("bonsai: error creating Post request: %w", err)
	}
	req.Header.Set("Content-type", "application/json")
	_, err = c.do(req, resData)
	return telemetry.RecordErrorOnSpan(span)(err)
}

// put uploads data to a presigned location returned by the service.
func (c *Client) put(ctx context.Context, location string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, location, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bonsai: error creating Put request: %w", err)
	}
	req.ContentLength = int64(len(data))
	_, err = c.do(req, nil)
	return err
}

func (c *Client) do(req *http.Request, resData any) (int, error) {
	c.setHeaders(req.Header)
	req.Close = true // don't keep connections lying around

	res, err := c.Client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("bonsai: after sending request: %w", err)
	}
	defer closeBody(res)

	if err = checkResponse(res); err != nil {
		return res.StatusCode, err
	}
	if resData == nil || res.StatusCode == http.StatusNoContent {
		return res.StatusCode, nil
	}
	if err = json.NewDecoder(res.Body).Decode(resData); err != nil {
		if err == io.EOF {
			return res.StatusCode, nil // No error, just no data
		}
		return res.StatusCode, fmt.Errorf("bonsai: error decoding response body: %w", err)
	}
	return res.StatusCode, nil
}

func (c *Client) setHeaders(h http.Header) {
	for header, value := range c.DefaultHeaders {
		h.Set(header, value)
	}
}

func checkResponse(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return &HTTPError{
		Method:     res.Request.Method,
		URL:        res.Request.URL.Redacted(),
		StatusCode: res.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
	}
}

func closeBody(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	if err := res.Body.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing response body")
	}
}

func httpStatus(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

// compile time check that Client implements ProvingService
var _ remote.ProvingService = (*Client)(nil)
