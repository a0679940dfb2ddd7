// Package restapi talks to the club-management REST backend.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/tidwall/gjson"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/session"
)

const (
	HeaderRequestID = "X-Request-ID"
	defaultTimeout  = 15 * time.Second
)

// Client sends authenticated requests and unwraps the response envelope.
type Client struct {
	baseURL string
	sess    *session.Context
	rest    *rest.Client
	logger  core.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (eg. for a custom transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.rest.HTTPClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.rest.HTTPClient.Timeout = d
		}
	}
}

func NewClient(baseURL string, sess *session.Context, logger core.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		sess:    sess,
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: defaultTimeout}},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a Client for conf.API.
func NewClientFromConfig(conf *core.Config, sess *session.Context, logger core.Logger) *Client {
	return NewClient(conf.API.BaseURL, sess, logger, WithTimeout(conf.API.Timeout))
}

func (c *Client) Session() *session.Context { return c.sess }

// Send performs method on path and returns the decoded response body.
// Network failures and undecodable bodies are TransportErrors; refusals
// (`success: false` or a non-2xx status) are ApplicationErrors.
func (c *Client) Send(ctx context.Context, method rest.Method, path string, query map[string]string, body interface{}) (gjson.Result, error) {
	op := fmt.Sprintf("%s /%s", method, strings.TrimLeft(path, "/"))

	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + "/" + strings.TrimLeft(path, "/"),
		Headers:     map[string]string{"Accept": "application/json", HeaderRequestID: uuid.New().String()},
		QueryParams: query,
	}
	if c.sess != nil && c.sess.Token != "" {
		req.Headers["Authorization"] = "Bearer " + c.sess.Token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, errors.Wrap(err, "encoding request body")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	c.logger.Debug(fmt.Sprintf("-> %s", op), map[string]interface{}{"requestId": req.Headers[HeaderRequestID], "query": query})
	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return gjson.Result{}, core.NewTransportError(op, err)
	}
	c.logger.Debug(fmt.Sprintf("<- %s %d", op, res.StatusCode))

	return decode(op, res.StatusCode, res.Body)
}

func decode(op string, status int, body string) (gjson.Result, error) {
	ok := status >= http.StatusOK && status < http.StatusMultipleChoices
	if strings.TrimSpace(body) == "" {
		if ok {
			return gjson.Result{}, nil // eg. 204 on delete
		}
		return gjson.Result{}, core.NewApplicationError(status, "")
	}
	if !gjson.Valid(body) {
		if ok {
			return gjson.Result{}, core.NewTransportError(op, errors.New("response is not valid JSON"))
		}
		return gjson.Result{}, core.NewApplicationError(status, "")
	}

	res := gjson.Parse(body)
	success := res.Get("success")
	if ok && (!success.Exists() || success.Bool()) {
		return res, nil
	}
	msg := res.Get("message").String()
	if msg == "" {
		msg = res.Get("error").String()
	}
	if msg == "" && ok {
		msg = "request failed"
	}
	return res, core.NewApplicationError(status, msg)
}
