package target

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lowsky/happo.io/internal/css"
	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/retry"
	"github.com/lowsky/happo.io/internal/snap"
)

// snapRequest is the wire format for one target execution submission.
type snapRequest struct {
	TargetName     string         `json:"targetName"`
	Browser        string         `json:"browser,omitempty"`
	Viewport       string         `json:"viewport"`
	AssetsLocation string         `json:"assetsLocation"`
	CSSBlocks      []css.Block    `json:"cssBlocks"`
	Snaps          []snap.Payload `json:"snaps,omitempty"`
	Async          bool           `json:"async"`
}

// HTTPRemote submits target executions to the comparison service over HTTP.
type HTTPRemote struct {
	endpoint  string
	apiKey    string
	apiSecret string
	client    *http.Client
	policy    retry.Policy
	logger    *slog.Logger
}

// NewHTTPRemote creates a remote for the given endpoint and credentials.
func NewHTTPRemote(endpoint, apiKey, apiSecret string, logger *slog.Logger) *HTTPRemote {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRemote{
		endpoint:  strings.TrimRight(endpoint, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 2 * time.Minute},
		policy:    retry.DefaultPolicy(),
		logger:    logger,
	}
}

// Execute implements Remote. Server-side failures (5xx) are retried with
// backoff; client-side rejections are not.
func (r *HTTPRemote) Execute(ctx context.Context, req ExecuteRequest) (any, error) {
	body, err := json.Marshal(snapRequest{
		TargetName:     req.TargetName,
		Browser:        req.Target.Browser,
		Viewport:       fmt.Sprintf("%dx%d", req.Target.ViewportWidth, req.Target.ViewportHeight),
		AssetsLocation: req.AssetsLocation,
		CSSBlocks:      req.CSSBlocks,
		Snaps:          req.Payloads,
		Async:          req.Async,
	})
	if err != nil {
		return nil, errors.RemoteExecutionError(err, "failed to encode snap request")
	}

	var result any
	err = r.policy.Do(ctx, func() error {
		value, attemptErr := r.submit(ctx, req.TargetName, body)
		if attemptErr != nil {
			return attemptErr
		}
		result = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *HTTPRemote) submit(ctx context.Context, targetName string, body []byte) (any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/api/snap-requests", bytes.NewReader(body))
	if err != nil {
		return nil, errors.RemoteExecutionError(err, "failed to build snap request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(r.apiKey, r.apiSecret)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.CategoryRemote, errors.SeverityError,
			fmt.Sprintf("snap request failed for target %s", targetName))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.AuthError("comparison service rejected the provided credentials")
	case resp.StatusCode >= 500:
		drained, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.WrapRetryable(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(drained))),
			errors.CategoryRemote, errors.SeverityError,
			fmt.Sprintf("comparison service error for target %s", targetName))
	case resp.StatusCode >= 300:
		drained, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.RemoteExecutionError(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(drained))),
			fmt.Sprintf("comparison service rejected target %s", targetName))
	}

	var value map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return nil, errors.RemoteExecutionError(err, "failed to decode snap response")
	}
	return value, nil
}
