// Package apiclient turns typed domain calls into authenticated, schema-validated
// HTTP exchanges with the tracker API.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/tokenstore"
)

// AuthHeader header carrying the auth token
const AuthHeader = "x-auth-token"

const maxBodyBytes = 8 << 20

// SessionObserver is told when the server rejects the session (HTTP 401)
type SessionObserver interface {
	SessionExpired(ctx context.Context)
}

// SessionObserverFunc adapts a func to SessionObserver
type SessionObserverFunc func(ctx context.Context)

func (f SessionObserverFunc) SessionExpired(ctx context.Context) { f(ctx) }

// Options client construction parameters
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration // used when HTTPClient is nil
	Tokens     tokenstore.Store
	Session    SessionObserver
	Logger     zerolog.Logger
	// Development enables contract drift warnings
	Development bool
	Contracts   []Contract // defaults to Contracts
}

// Client schema client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      tokenstore.Store
	session     SessionObserver
	registry    *Registry
	log         zerolog.Logger
	development bool
}

// Call per-request inputs
type Call struct {
	Params map[string]string
	Query  url.Values
	Body   any
}

// New creates a client
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.Tokens == nil {
		return nil, errors.New("token store is required")
	}

	contracts := opts.Contracts
	if contracts == nil {
		contracts = Contracts
	}
	registry, err := NewRegistry(contracts)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     base,
		httpClient:  httpClient,
		tokens:      opts.Tokens,
		session:     opts.Session,
		registry:    registry,
		log:         opts.Logger.With().Str("component", "apiclient").Logger(),
		development: opts.Development,
	}, nil
}

// Do executes the contract named alias, decoding the response into out
func (c *Client) Do(ctx context.Context, alias string, call Call, out any) error {
	contract, ok := c.registry.Lookup(alias)
	if !ok {
		return fmt.Errorf("unknown operation %q", alias)
	}
	if out != nil && contract.Response != nil {
		t := reflect.TypeOf(out)
		if t.Kind() != reflect.Pointer || t.Elem() != reflect.TypeOf(contract.Response) {
			return fmt.Errorf("%s: response target %T does not match schema %T", alias, out, contract.Response)
		}
	}

	if !contract.accepts(call.Body) {
		return &Error{Kind: KindValidation, Op: alias, Message: fmt.Sprintf("body %T does not match request schema", call.Body)}
	}
	if call.Body != nil {
		if err := checkSchema(call.Body); err != nil {
			return &Error{Kind: KindValidation, Op: alias, Message: err.Error(), Err: err}
		}
	}

	path, err := contract.expandPath(call.Params)
	if err != nil {
		return &Error{Kind: KindValidation, Op: alias, Message: err.Error(), Err: err}
	}

	req, err := c.newRequest(ctx, contract, path, call)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("op", alias).Msg("request failed before response")
		return &Error{Kind: KindNetwork, Op: alias, Message: "no response from server", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: alias, Status: resp.StatusCode, Message: "response interrupted", Err: err}
	}

	c.log.Debug().
		Str("op", alias).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	if resp.StatusCode == http.StatusUnauthorized {
		if c.session != nil {
			c.session.SessionExpired(ctx)
		}
		return &Error{Kind: KindUnauthorized, Op: alias, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindServer, Op: alias, Status: resp.StatusCode, Message: serverMessage(body)}
	}

	if contract.Response == nil || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.contractViolation(alias, resp.StatusCode, body, err)
	}
	if err := checkSchema(out); err != nil {
		return c.contractViolation(alias, resp.StatusCode, body, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, contract Contract, path string, call Call) (*http.Request, error) {
	target := c.baseURL + path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var reader io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Op: contract.Alias, Message: "encode request body", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, contract.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !contract.Anonymous {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("op", contract.Alias).Msg("token unavailable, sending unauthenticated")
		} else if token != "" {
			req.Header.Set(AuthHeader, token)
		}
	}
	return req, nil
}

func (c *Client) contractViolation(alias string, status int, body []byte, err error) error {
	if c.development {
		c.log.Warn().
			Err(err).
			Str("op", alias).
			Int("status", status).
			Str("body", truncate(string(body), 512)).
			Msg("response does not match contract")
	}
	return &Error{Kind: KindContractViolation, Op: alias, Status: status, Message: DefaultMessage, Err: err}
}

// serverMessage prefers the server's message field, then the raw body
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
	}
	var text string
	if err := json.Unmarshal(body, &text); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if raw := strings.TrimSpace(string(body)); raw != "" {
		return truncate(raw, 512)
	}
	return DefaultMessage
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
