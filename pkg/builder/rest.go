package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// Client is an HTTP Collaborator talking to the survey backend's REST
// API. The bearer token is held explicitly by the client rather than
// read from any ambient store.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a REST collaborator. baseURL is the API root
// (e.g. "https://api.example.com/api/v1"), token a bearer token for
// the survey owner.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do issues one request and decodes the response envelope into out
// (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, msg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

type reorderBody struct {
	Updates []models.OrderUpdate `json:"updates"`
}

// SurveyDetail fetches the survey header and flat rows.
func (c *Client) SurveyDetail(ctx context.Context, surveyID uuid.UUID) (*models.SurveyDetail, error) {
	var detail models.SurveyDetail
	if err := c.do(ctx, http.MethodGet, "/surveys/"+surveyID.String()+"/detail", nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateSurvey(ctx context.Context, fields map[string]any) (*models.Survey, error) {
	var s models.Survey
	if err := c.do(ctx, http.MethodPost, "/surveys", fields, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSurvey(ctx context.Context, surveyID uuid.UUID, fields map[string]any) (*models.Survey, error) {
	var s models.Survey
	if err := c.do(ctx, http.MethodPatch, "/surveys/"+surveyID.String(), fields, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CreatePage(ctx context.Context, surveyID uuid.UUID, fields map[string]any) (*models.Page, error) {
	var p models.Page
	if err := c.do(ctx, http.MethodPost, "/surveys/"+surveyID.String()+"/pages", fields, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePage(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Page, error) {
	var p models.Page
	path := "/surveys/" + surveyID.String() + "/pages/" + pageID.String()
	if err := c.do(ctx, http.MethodPatch, path, fields, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePage(ctx context.Context, surveyID, pageID uuid.UUID) error {
	path := "/surveys/" + surveyID.String() + "/pages/" + pageID.String()
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ReorderPages(ctx context.Context, surveyID uuid.UUID, updates []models.OrderUpdate) error {
	path := "/surveys/" + surveyID.String() + "/pages/reorder"
	return c.do(ctx, http.MethodPut, path, reorderBody{Updates: updates}, nil)
}

func (c *Client) CreateQuestion(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Question, error) {
	var q models.Question
	path := "/surveys/" + surveyID.String() + "/pages/" + pageID.String() + "/questions"
	if err := c.do(ctx, http.MethodPost, path, fields, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, surveyID, questionID uuid.UUID, fields map[string]any) (*models.Question, error) {
	var q models.Question
	path := "/surveys/" + surveyID.String() + "/questions/" + questionID.String()
	if err := c.do(ctx, http.MethodPatch, path, fields, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, surveyID, questionID uuid.UUID) error {
	path := "/surveys/" + surveyID.String() + "/questions/" + questionID.String()
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ReorderQuestions(ctx context.Context, surveyID, pageID uuid.UUID, updates []models.OrderUpdate) error {
	path := "/surveys/" + surveyID.String() + "/pages/" + pageID.String() + "/questions/reorder"
	return c.do(ctx, http.MethodPut, path, reorderBody{Updates: updates}, nil)
}

func (c *Client) CreateOption(ctx context.Context, surveyID, questionID uuid.UUID, text string) (*models.Option, error) {
	var o models.Option
	path := "/surveys/" + surveyID.String() + "/questions/" + questionID.String() + "/options"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"text": text}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOption(ctx context.Context, surveyID, optionID uuid.UUID, text string) (*models.Option, error) {
	var o models.Option
	path := "/surveys/" + surveyID.String() + "/options/" + optionID.String()
	if err := c.do(ctx, http.MethodPatch, path, map[string]any{"text": text}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) DeleteOption(ctx context.Context, surveyID, optionID uuid.UUID) error {
	path := "/surveys/" + surveyID.String() + "/options/" + optionID.String()
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ReorderOptions(ctx context.Context, surveyID, questionID uuid.UUID, updates []models.OrderUpdate) error {
	path := "/surveys/" + surveyID.String() + "/questions/" + questionID.String() + "/options/reorder"
	return c.do(ctx, http.MethodPut, path, reorderBody{Updates: updates}, nil)
}

var _ Collaborator = (*Client)(nil)
