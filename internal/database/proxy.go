package database

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

	"go.uber.org/zap"
)

// ProxyBackend talks to an HTTP sqlite-proxy (for example a Turso endpoint)
// exposing /query, /batch and /migrate.
type ProxyBackend struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func NewProxyBackend(baseURL, token string, timeout time.Duration, logger *zap.Logger) *ProxyBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (p *ProxyBackend) Dialect() string {
	return DialectSQLite
}

func (p *ProxyBackend) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

type batchRequest struct {
	Queries []Statement `json:"queries"`
}

type migrateRequest struct {
	Queries []string `json:"queries"`
}

type proxyError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p *ProxyBackend) ExecuteStatement(ctx context.Context, query string, params []interface{}, mode Mode) (*Result, error) {
	if params == nil {
		params = []interface{}{}
	}

	var raw json.RawMessage
	stmt := Statement{SQL: query, Params: params, Mode: mode}
	if err := p.post(ctx, "/query", stmt, &raw); err != nil {
		return nil, err
	}

	rows, err := decodeRows(raw, mode)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows}, nil
}

func (p *ProxyBackend) ExecuteBatch(ctx context.Context, batch []Statement) ([]*Result, error) {
	statements := make([]Statement, len(batch))
	copy(statements, batch)
	for i := range statements {
		if statements[i].Params == nil {
			statements[i].Params = []interface{}{}
		}
	}

	var raw []json.RawMessage
	if err := p.post(ctx, "/batch", batchRequest{Queries: statements}, &raw); err != nil {
		return nil, err
	}
	if len(raw) != len(statements) {
		return nil, fmt.Errorf("%w: batch returned %d results for %d statements", ErrBackendRejected, len(raw), len(statements))
	}

	results := make([]*Result, len(statements))
	for i, r := range raw {
		rows, err := decodeRows(r, statements[i].Mode)
		if err != nil {
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		results[i] = &Result{Rows: rows}
	}
	return results, nil
}

func (p *ProxyBackend) RunMigrations(ctx context.Context, statements []string) error {
	return p.post(ctx, "/migrate", migrateRequest{Queries: statements}, nil)
}

// decodeRows normalizes a proxy response. "get" returns a single row, the
// other modes an array of rows; "run" results may be empty.
func decodeRows(raw json.RawMessage, mode Mode) ([][]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if mode == ModeGet {
		var row []interface{}
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("%w: malformed get response: %v", ErrBackendRejected, err)
		}
		if len(row) == 0 {
			return nil, nil
		}
		return [][]interface{}{row}, nil
	}

	var rows [][]interface{}
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		if mode == ModeRun {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: malformed rows response: %v", ErrBackendRejected, err)
	}
	return rows, nil
}

func (p *ProxyBackend) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", ErrBackendUnavailable, path, err)
	}

	p.logger.Debug("proxy request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(data)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s returned %d: %s", ErrBackendUnavailable, path, resp.StatusCode, msg)
		}
		return fmt.Errorf("%w: %s returned %d: %s", ErrBackendRejected, path, resp.StatusCode, msg)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: malformed %s response: %v", ErrBackendRejected, path, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var pe proxyError
	if err := json.Unmarshal(data, &pe); err == nil {
		if pe.Message != "" {
			return pe.Message
		}
		if pe.Error != "" {
			return pe.Error
		}
	}
	return strings.TrimSpace(string(data))
}
