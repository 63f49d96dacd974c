// Package supabase stores quizzes and results through a hosted PostgREST table API.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// Table names used by the hosted schema.
const (
	TableQuiz     = "quiz_quiz"
	TableQuestion = "quiz_question"
	TableResult   = "quiz_result"
)

// Client is a process-scoped PostgREST client. Build it once and share it.
type Client struct {
	rc *resty.Client
}

// New constructs a Client for baseURL authenticated with key.
func New(baseURL, key string) *Client {
	rc := resty.NewWithClient(observability.NewHTTPClient("supabase", 15*time.Second)).
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetHeader("apikey", key).
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

// insert posts rows and returns the created representation.
func (c *Client) insert(ctx context.Context, table string, body any) (gjson.Result, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		Post("/" + table)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("insert %s: %w", table, err)
	}
	if resp.IsError() {
		return gjson.Result{}, upstream(resp)
	}
	return gjson.ParseBytes(resp.Body()), nil
}

// selectRows runs a filtered GET; params use PostgREST operators such as "eq.1".
func (c *Client) selectRows(ctx context.Context, table string, params map[string]string) (gjson.Result, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/" + table)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("select %s: %w", table, err)
	}
	if resp.IsError() {
		return gjson.Result{}, upstream(resp)
	}
	return gjson.ParseBytes(resp.Body()), nil
}

func (c *Client) delete(ctx context.Context, table string, params map[string]string) error {
	resp, err := c.rc.R().SetContext(ctx).SetQueryParams(params).Delete("/" + table)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if resp.IsError() {
		return upstream(resp)
	}
	return nil
}

func upstream(resp *resty.Response) error {
	msg := gjson.GetBytes(resp.Body(), "message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Body()))
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	}
	return &domain.UpstreamError{Provider: "supabase", Status: resp.StatusCode(), Body: msg}
}

func eq(v string) string { return "eq." + v }

func optional(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func optionalString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

func parseTime(r gjson.Result) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, r.String()); err == nil {
		return t
	}
	return time.Time{}
}

// Ping checks that the table API answers for the quiz table.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.selectRows(ctx, TableQuiz, map[string]string{"select": "id", "limit": "1"})
	return err
}
