package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/pkg/client"
)

func strPtr(s string) *string { return &s }

func TestLoginStoresNothingButReturnsToken(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"user":{"id":"u1","name":"Alice","email":"alice@example.com"},"token":"tok-123"}`)
	}))
	defer server.Close()

	c := client.New(server.URL)

	// Act
	result, err := c.Login(context.Background(), "alice@example.com", "Secret#123")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "tok-123", result.Token)
	assert.Equal(t, "Alice", result.User.Name)
}

func TestAuthenticatedRequestsCarryBearerToken(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"u1","name":"Alice","email":"alice@example.com"}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok-123")

	// Act
	user, err := c.Me(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestTasksSendsPaginationQuery(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"data":{"current_page":2,"data":[{"id":"t1","title":"Courses"}],"per_page":5,"total":12,"last_page":3,"path":"/tasks"}}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	page, err := c.Tasks(context.Background(), 2, 5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, int64(12), page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Courses", page.Data[0].Title)
}

func TestCreateTaskWithoutImageSendsJSON(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Courses", body["title"])
		assert.Equal(t, "2026-09-15", body["due_date"])
		_, hasDescription := body["description"]
		assert.False(t, hasDescription, "absent fields should be omitted")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"t1","title":"Courses","due_date":"2026-09-15","completed":false}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	task, err := c.CreateTask(context.Background(), client.TaskParams{
		Title:   strPtr("Courses"),
		DueDate: strPtr("2026-09-15"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID)
}

func TestCreateTaskWithImageSendsMultipart(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		require.NoError(t, r.ParseMultipartForm(8<<20))
		assert.Equal(t, "Courses", r.FormValue("title"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "photo.png", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"t1","title":"Courses","image_path":"tasks/abc.png"}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	task, err := c.CreateTask(context.Background(), client.TaskParams{
		Title:   strPtr("Courses"),
		DueDate: strPtr("2026-09-15"),
		Image:   &client.ImageFile{Name: "photo.png", Data: []byte{1, 2, 3}},
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, task.ImagePath)
	assert.Equal(t, "tasks/abc.png", *task.ImagePath)
}

func TestUpdateTaskUnwrapsEnvelope(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tasks/t1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"message":"Tâche mise à jour avec succès","data":{"id":"t1","title":"Nouveau titre"}}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	task, err := c.UpdateTask(context.Background(), "t1", client.TaskParams{Title: strPtr("Nouveau titre")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Nouveau titre", task.Title)
}

func TestCompleteTaskUsesPatch(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/tasks/t1/complete", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"message":"Tâche marquée comme terminée","data":{"id":"t1","completed":true}}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	task, err := c.CompleteTask(context.Background(), "t1")

	// Assert
	require.NoError(t, err)
	assert.True(t, task.Completed)
}

func TestValidationErrorsAreDecoded(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"Validation Error","errors":{"title":["Le titre est obligatoire."]}}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	_, err := c.CreateTask(context.Background(), client.TaskParams{DueDate: strPtr("2026-09-15")})

	// Assert
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Validation Error", apiErr.Message)
	assert.Equal(t, []string{"Le titre est obligatoire."}, apiErr.Errors["title"])
}

func TestForbiddenErrorCarriesMessage(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"success":false,"message":"Vous n'êtes pas autorisé à supprimer cette tâche"}`)
	}))
	defer server.Close()

	c := client.New(server.URL)
	c.SetToken("tok")

	// Act
	err := c.DeleteTask(context.Background(), "t1")

	// Assert
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Vous n'êtes pas autorisé à supprimer cette tâche", apiErr.Message)
}
