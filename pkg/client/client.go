// Package client provides a Go client for the task manager HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a task manager server. It is safe for concurrent use once
// the token has been set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs the bearer token used for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Task struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     string  `json:"due_date"`
	ImagePath   *string `json:"image_path"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Page is the paginator envelope returned by the listing endpoints.
type Page struct {
	CurrentPage int     `json:"current_page"`
	Data        []Task  `json:"data"`
	From        *int    `json:"from"`
	LastPage    int     `json:"last_page"`
	NextPageURL *string `json:"next_page_url"`
	Path        string  `json:"path"`
	PerPage     int     `json:"per_page"`
	PrevPageURL *string `json:"prev_page_url"`
	To          *int    `json:"to"`
	Total       int64   `json:"total"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ImageFile is an attachment to upload alongside a task.
type ImageFile struct {
	Name string
	Data []byte
}

// TaskParams carries the task fields for create and update calls. Nil fields
// are omitted from the request, which makes updates partial.
type TaskParams struct {
	Title       *string
	Description *string
	DueDate     *string
	Image       *ImageFile
}

// APIError is a non-2xx response from the server. For validation failures
// Errors holds the per-field messages.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("api: %d %s %v", e.Status, e.Message, e.Errors)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (c *Client) Register(ctx context.Context, name, email, password, passwordConfirmation string) (*AuthResult, error) {
	body := map[string]string{
		"name":                  name,
		"email":                 email,
		"password":              password,
		"password_confirmation": passwordConfirmation,
	}
	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/register", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Tasks fetches a page of the task listing. Zero values fall back to the
// server defaults.
func (c *Client) Tasks(ctx context.Context, page, perPage int) (*Page, error) {
	return c.listTasks(ctx, "/tasks", page, perPage)
}

// AdminTasks fetches a page of the admin listing, which uses a smaller
// default page size.
func (c *Client) AdminTasks(ctx context.Context, page, perPage int) (*Page, error) {
	return c.listTasks(ctx, "/tasks/admin", page, perPage)
}

func (c *Client) listTasks(ctx context.Context, path string, page, perPage int) (*Page, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    Page `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) CreateTask(ctx context.Context, params TaskParams) (*Task, error) {
	var task Task
	if err := c.doTaskForm(ctx, http.MethodPost, "/tasks", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, params TaskParams) (*Task, error) {
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    Task   `json:"data"`
	}
	if err := c.doTaskForm(ctx, http.MethodPut, "/tasks/"+id, params, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) CompleteTask(ctx context.Context, id string) (*Task, error) {
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    Task   `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPatch, "/tasks/"+id+"/complete", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/tasks/"+id, nil, nil)
}

// doTaskForm sends the task fields as multipart form data when an image is
// attached and as JSON otherwise, matching what browsers send.
func (c *Client) doTaskForm(ctx context.Context, method, path string, params TaskParams, out any) error {
	if params.Image == nil {
		body := map[string]any{}
		if params.Title != nil {
			body["title"] = *params.Title
		}
		if params.Description != nil {
			body["description"] = *params.Description
		}
		if params.DueDate != nil {
			body["due_date"] = *params.DueDate
		}
		return c.doJSON(ctx, method, path, body, out)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if params.Title != nil {
		if err := writer.WriteField("title", *params.Title); err != nil {
			return err
		}
	}
	if params.Description != nil {
		if err := writer.WriteField("description", *params.Description); err != nil {
			return err
		}
	}
	if params.DueDate != nil {
		if err := writer.WriteField("due_date", *params.DueDate); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("image", params.Image.Name)
	if err != nil {
		return err
	}
	if _, err := part.Write(params.Image.Data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return c.do(ctx, method, path, &buf, writer.FormDataContentType(), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if err := json.Unmarshal(data, &payload); err == nil {
			apiErr.Message = payload.Message
			apiErr.Errors = payload.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
