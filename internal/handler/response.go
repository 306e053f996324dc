package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/model"
)

const dateLayout = "2006-01-02"

// TaskResponse is the external representation of a task. Due dates are
// rendered as calendar dates, not date-times.
type TaskResponse struct {
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

func newTaskResponse(task *model.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		UserID:      task.UserID.String(),
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate.Format(dateLayout),
		ImagePath:   task.ImagePath,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
}

// PageResponse mirrors the upstream paginator envelope.
type PageResponse struct {
	CurrentPage  int            `json:"current_page"`
	Data         []TaskResponse `json:"data"`
	FirstPageURL string         `json:"first_page_url"`
	From         *int           `json:"from"`
	LastPage     int            `json:"last_page"`
	LastPageURL  string         `json:"last_page_url"`
	NextPageURL  *string        `json:"next_page_url"`
	Path         string         `json:"path"`
	PerPage      int            `json:"per_page"`
	PrevPageURL  *string        `json:"prev_page_url"`
	To           *int           `json:"to"`
	Total        int64          `json:"total"`
}

func newPageResponse(tasks []model.Task, total int64, page, perPage int, path string) PageResponse {
	data := make([]TaskResponse, len(tasks))
	for i := range tasks {
		data[i] = newTaskResponse(&tasks[i])
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	pageURL := func(n int) string {
		return fmt.Sprintf("%s?page=%d", path, n)
	}

	resp := PageResponse{
		CurrentPage:  page,
		Data:         data,
		FirstPageURL: pageURL(1),
		LastPage:     lastPage,
		LastPageURL:  pageURL(lastPage),
		Path:         path,
		PerPage:      perPage,
		Total:        total,
	}

	if len(data) > 0 {
		from := (page-1)*perPage + 1
		to := from + len(data) - 1
		resp.From = &from
		resp.To = &to
	}
	if page < lastPage {
		next := pageURL(page + 1)
		resp.NextPageURL = &next
	}
	if page > 1 {
		prev := pageURL(page - 1)
		resp.PrevPageURL = &prev
	}
	return resp
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondValidation(c *gin.Context, fields map[string][]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": "Validation Error",
		"errors":  fields,
	})
}
