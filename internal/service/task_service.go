package service

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"taskmanager/internal/model"
	"taskmanager/internal/storage"
)

const (
	maxTitleLen   = 255
	maxImageBytes = 3048 * 1024
	dateLayout    = "2006-01-02"
)

// TaskRepository is the persistence contract the service depends on,
// implemented by repository.TaskRepository.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	ListPage(ctx context.Context, page, perPage int) ([]model.Task, int64, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageUpload is a decoded image attachment from a multipart request.
type ImageUpload struct {
	Filename string
	Data     []byte
}

type CreateTaskInput struct {
	Title            string
	Description      *string
	DueDate          string
	CompletedPresent bool
	Image            *ImageUpload
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *string
	Image       *ImageUpload
}

// TaskService implements the task lifecycle: validation, ownership
// enforcement and orchestration of the repository and the blob store.
type TaskService struct {
	tasks TaskRepository
	blobs storage.BlobStore
}

func NewTaskService(tasks TaskRepository, blobs storage.BlobStore) *TaskService {
	return &TaskService{tasks: tasks, blobs: blobs}
}

// Create validates the input and persists a new task owned by ownerID. When
// an image is attached it is stored first so the row is inserted already
// carrying its image path; a failed insert cleans the blob up best-effort.
func (s *TaskService) Create(ctx context.Context, ownerID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	verr := &ValidationError{}

	if in.Title == "" {
		verr.add("title", "Le titre est obligatoire.")
	} else if utf8.RuneCountInString(in.Title) > maxTitleLen {
		verr.add("title", "Le titre ne doit pas contenir plus de 255 caractères.")
	}

	var dueDate time.Time
	if in.DueDate == "" {
		verr.add("due_date", "La date d'échéance est obligatoire.")
	} else {
		parsed, err := time.ParseInLocation(dateLayout, in.DueDate, time.Local)
		if err != nil {
			verr.add("due_date", "La date d'échéance doit être une date valide.")
		} else if parsed.Before(today()) {
			verr.add("due_date", "La date d'échéance doit etre postérieure ou égale aujourd'hui.")
		} else {
			dueDate = parsed
		}
	}

	if in.CompletedPresent {
		verr.add("completed", "The completed field is prohibited.")
	}

	if in.Image != nil {
		validateImage(in.Image, verr)
	}

	if verr.any() {
		return nil, verr
	}

	var imagePath *string
	if in.Image != nil {
		path, err := s.blobs.Put(ctx, in.Image.Data, in.Image.Filename)
		if err != nil {
			return nil, &StorageError{Op: "put", Err: err}
		}
		imagePath = &path
	}

	task := &model.Task{
		UserID:    ownerID,
		Title:     in.Title,
		DueDate:   dueDate,
		ImagePath: imagePath,
		Completed: false,
	}
	if in.Description != nil {
		task.Description = *in.Description
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if imagePath != nil {
			if derr := s.blobs.Delete(ctx, *imagePath); derr != nil {
				log.Printf("⚠️  orphaned blob %s after failed task insert: %v", *imagePath, derr)
			}
		}
		return nil, err
	}
	return task, nil
}

// List returns one page of tasks across all owners, plus the total count.
// The unscoped listing mirrors the upstream API contract.
func (s *TaskService) List(ctx context.Context, page, perPage int) ([]model.Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	return s.tasks.ListPage(ctx, page, perPage)
}

// Complete marks a task as done. Completing an already completed task is a
// no-op success.
func (s *TaskService) Complete(ctx context.Context, callerID, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != callerID {
		return nil, ErrForbiddenModify
	}

	task.Completed = true
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies a partial update; absent fields keep their current values.
// A replacement image is stored before the row is persisted, and the old
// blob is only removed once both have succeeded, so the task never ends up
// pointing at a path that was lost mid-flight.
func (s *TaskService) Update(ctx context.Context, callerID, taskID uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != callerID {
		return nil, ErrForbiddenModify
	}

	verr := &ValidationError{}

	if in.Title != nil {
		if *in.Title == "" {
			verr.add("title", "Le titre est obligatoire.")
		} else if utf8.RuneCountInString(*in.Title) > maxTitleLen {
			verr.add("title", "Le titre ne doit pas contenir plus de 255 caractères.")
		}
	}

	var dueDate *time.Time
	if in.DueDate != nil {
		parsed, err := time.ParseInLocation(dateLayout, *in.DueDate, time.Local)
		if err != nil {
			verr.add("due_date", "La date d'échéance doit être une date valide.")
		} else {
			dueDate = &parsed
		}
	}

	if in.Image != nil {
		validateImage(in.Image, verr)
	}

	if verr.any() {
		return nil, verr
	}

	var oldPath *string
	if in.Image != nil {
		newPath, err := s.blobs.Put(ctx, in.Image.Data, in.Image.Filename)
		if err != nil {
			return nil, &StorageError{Op: "put", Err: err}
		}
		oldPath = task.ImagePath
		task.ImagePath = &newPath
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if dueDate != nil {
		task.DueDate = *dueDate
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if in.Image != nil {
			if derr := s.blobs.Delete(ctx, *task.ImagePath); derr != nil {
				log.Printf("⚠️  orphaned blob %s after failed task update: %v", *task.ImagePath, derr)
			}
		}
		return nil, err
	}

	if oldPath != nil {
		if derr := s.blobs.Delete(ctx, *oldPath); derr != nil {
			log.Printf("⚠️  failed to remove replaced blob %s: %v", *oldPath, derr)
		}
	}
	return task, nil
}

// Delete removes the task row first, then cleans up its image best-effort:
// a blob store failure never blocks the deletion.
func (s *TaskService) Delete(ctx context.Context, callerID, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.UserID != callerID {
		return ErrForbiddenDelete
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}

	if task.ImagePath != nil {
		if derr := s.blobs.Delete(ctx, *task.ImagePath); derr != nil {
			log.Printf("⚠️  failed to remove blob %s of deleted task %s: %v", *task.ImagePath, taskID, derr)
		}
	}
	return nil
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

func validateImage(img *ImageUpload, verr *ValidationError) {
	if !allowedImageTypes[http.DetectContentType(img.Data)] || !allowedImageExt(img.Filename) {
		verr.add("image", "Le fichier doit avoir une extension JPEG, PNG, JPG ou GIF.")
	}
	if len(img.Data) > maxImageBytes {
		verr.add("image", "Le fichier doit avoir une taille maximale de 2Mo.")
	}
}

func allowedImageExt(name string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpeg", "jpg", "png", "gif":
		return true
	}
	return false
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}
