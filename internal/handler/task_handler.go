package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskService is the slice of service.TaskService the handler needs.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in service.CreateTaskInput) (*model.Task, error)
	List(ctx context.Context, page, perPage int) ([]model.Task, int64, error)
	Complete(ctx context.Context, callerID, taskID uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, callerID, taskID uuid.UUID, in service.UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, callerID, taskID uuid.UUID) error
}

var _ TaskService = (*service.TaskService)(nil)

type TaskHandler struct {
	service TaskService
}

func NewTaskHandler(service TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskForm is the raw request body of a create or update, before
// validation. Pointers distinguish absent fields from empty ones.
type taskForm struct {
	Title            *string
	Description      *string
	DueDate          *string
	CompletedPresent bool
	Image            *service.ImageUpload
}

// parseTaskForm accepts either multipart form-data (when an image is
// attached) or a plain JSON body.
func parseTaskForm(c *gin.Context) (*taskForm, error) {
	if c.ContentType() == "multipart/form-data" {
		return parseMultipartTaskForm(c)
	}

	raw := map[string]any{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&raw); err != nil {
			return nil, err
		}
	}

	form := &taskForm{}
	form.Title = jsonString(raw, "title")
	form.Description = jsonString(raw, "description")
	form.DueDate = jsonString(raw, "due_date")
	_, form.CompletedPresent = raw["completed"]
	return form, nil
}

func parseMultipartTaskForm(c *gin.Context) (*taskForm, error) {
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	form := &taskForm{}
	form.Title = formValue(mf.Value, "title")
	form.Description = formValue(mf.Value, "description")
	form.DueDate = formValue(mf.Value, "due_date")
	_, form.CompletedPresent = mf.Value["completed"]

	if files := mf.File["image"]; len(files) > 0 {
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		form.Image = &service.ImageUpload{Filename: fh.Filename, Data: data}
	}
	return form, nil
}

func formValue(values map[string][]string, key string) *string {
	if vs, ok := values[key]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}

func jsonString(raw map[string]any, key string) *string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	s, _ := v.(string) // non-string values fail field validation downstream
	return &s
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	if !ok {
		respondError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// Create handles POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	form, err := parseTaskForm(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}

	in := service.CreateTaskInput{
		Description:      form.Description,
		CompletedPresent: form.CompletedPresent,
		Image:            form.Image,
	}
	if form.Title != nil {
		in.Title = *form.Title
	}
	if form.DueDate != nil {
		in.DueDate = *form.DueDate
	}

	task, err := h.service.Create(c.Request.Context(), callerID, in)
	if err != nil {
		h.handleServiceError(c, err, "Erreur lors de la création de la tâche")
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// Index handles GET /tasks. The listing is paginated but not scoped to the
// caller.
func (h *TaskHandler) Index(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 15)

	tasks, total, err := h.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		log.Printf("❌ failed to list tasks: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la récupération des tâches")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    newPageResponse(tasks, total, page, perPage, "/tasks"),
	})
}

// AdminIndex handles GET /tasks/admin, the administrative listing with a
// smaller default page size.
func (h *TaskHandler) AdminIndex(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 10)

	tasks, total, err := h.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		log.Printf("❌ failed to list tasks: %v", err)
		respondError(c, http.StatusInternalServerError, "Erreur lors de la récupération des tâches")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    newPageResponse(tasks, total, page, perPage, "/tasks/admin"),
	})
}

// Complete handles PATCH /tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	task, err := h.service.Complete(c.Request.Context(), callerID, taskID)
	if err != nil {
		h.handleServiceError(c, err, "Erreur lors de la mise à jour de la tâche")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tâche marquée comme terminée",
		"data":    newTaskResponse(task),
	})
}

// Update handles PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	form, err := parseTaskForm(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}

	task, err := h.service.Update(c.Request.Context(), callerID, taskID, service.UpdateTaskInput{
		Title:       form.Title,
		Description: form.Description,
		DueDate:     form.DueDate,
		Image:       form.Image,
	})
	if err != nil {
		h.handleServiceError(c, err, "Erreur lors de la mise à jour de la tâche")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tâche mise à jour avec succès",
		"data":    newTaskResponse(task),
	})
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid task ID format")
		return
	}

	if err := h.service.Delete(c.Request.Context(), callerID, taskID); err != nil {
		h.handleServiceError(c, err, "Erreur lors de la suppression de la tâche")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tâche supprimée avec succès",
	})
}

func (h *TaskHandler) handleServiceError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		respondValidation(c, verr.Fields)
		return
	}

	var ferr *service.ForbiddenError
	if errors.As(err, &ferr) {
		respondError(c, http.StatusForbidden, ferr.Error())
		return
	}

	if errors.Is(err, repository.ErrTaskNotFound) {
		respondError(c, http.StatusNotFound, "Tâche introuvable")
		return
	}

	log.Printf("❌ task operation failed: %v", err)
	respondError(c, http.StatusInternalServerError, fallback)
}
