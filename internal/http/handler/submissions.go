package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bandprep/internal/auth"
	"bandprep/internal/submission"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	maxImageBytes = 5 << 20
	maxAudioBytes = 20 << 20
	maxFormMemory = 16 << 20
)

var validate = validator.New()

var allowedImageMimes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// SubmissionHandler accepts new essays and recordings. It writes the blob to
// the upload dir, records the file row, and inserts the pending job; workers
// take over from there.
type SubmissionHandler struct {
	Svc       *submission.Service
	UploadDir string
}

type writingForm struct {
	TaskID        uint64 `validate:"required"`
	TaskType      string `validate:"required,oneof=academic_task_1 academic_task_2 general_task_1 general_task_2"`
	ExamVariantID uint64 `validate:"required"`
	Essay         string `validate:"required,min=20"`
	TaskPrompt    string `validate:"required,min=5"`
}

func (h *SubmissionHandler) CreateWriting(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	form := writingForm{
		TaskID:        parseID(r.FormValue("task_id")),
		TaskType:      strings.TrimSpace(r.FormValue("task_type")),
		ExamVariantID: parseID(r.FormValue("exam_variant_id")),
		Essay:         strings.TrimSpace(r.FormValue("essay")),
		TaskPrompt:    strings.TrimSpace(r.FormValue("task_prompt")),
	}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields: task_id, task_type, exam_variant_id, essay")
		return
	}

	var imageFileID *uint64
	if form.TaskType == "academic_task_1" {
		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			id, _, herr := h.storeUpload(r, uid, file, header.Size, "submissions", maxImageBytes, true)
			if herr != nil {
				writeError(w, http.StatusBadRequest, herr.Error())
				return
			}
			imageFileID = &id
		}
	}

	id, err := h.Svc.CreateWriting(r.Context(), uid, submission.CreateWritingInput{
		TaskID:        form.TaskID,
		TaskType:      form.TaskType,
		ExamVariantID: form.ExamVariantID,
		Essay:         form.Essay,
		TaskPrompt:    form.TaskPrompt,
		ImageFileID:   imageFileID,
	})
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "Task not found")
		case errors.Is(err, submission.ErrVariantNotFound):
			writeError(w, http.StatusNotFound, "Exam variant not found")
		default:
			writeError(w, http.StatusInternalServerError, "server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"submission_id": id,
		"message":       "Submission saved successfully",
	})
}

type speakingForm struct {
	TaskID     uint64 `validate:"required"`
	TaskPrompt string `validate:"required,min=5"`
}

func (h *SubmissionHandler) CreateSpeaking(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	form := speakingForm{
		TaskID:     parseID(r.FormValue("task_id")),
		TaskPrompt: strings.TrimSpace(r.FormValue("task_prompt")),
	}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields: task_id, task_prompt, audio")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields: task_id, task_prompt, audio")
		return
	}
	defer file.Close()

	fileID, storageKey, herr := h.storeUpload(r, uid, file, header.Size, "speaking", maxAudioBytes, false)
	if herr != nil {
		writeError(w, http.StatusBadRequest, herr.Error())
		return
	}

	id, err := h.Svc.CreateSpeaking(r.Context(), uid, submission.CreateSpeakingInput{
		TaskID:     form.TaskID,
		TaskPrompt: form.TaskPrompt,
		AudioURL:   "/uploads/" + storageKey,
		FileID:     &fileID,
	})
	if err != nil {
		if errors.Is(err, submission.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"submission_id": id,
		"message":       "Submission saved successfully",
	})
}

// storeUpload sniffs the blob, enforces size/type limits, writes it under the
// upload dir and records the file row. Returns the file id and storage key.
func (h *SubmissionHandler) storeUpload(r *http.Request, uid uint64, file io.Reader, size int64, prefix string, maxBytes int64, imageOnly bool) (uint64, string, error) {
	if size > maxBytes {
		return 0, "", errors.New("file too large")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return 0, "", errors.New("failed to read upload")
	}
	if int64(len(data)) > maxBytes {
		return 0, "", errors.New("file too large")
	}

	mime := http.DetectContentType(data)
	ext := "bin"
	if imageOnly {
		e, ok := allowedImageMimes[mime]
		if !ok {
			return 0, "", errors.New("invalid image type. Allowed: JPEG, PNG, GIF, WebP")
		}
		ext = e
	} else {
		switch {
		case strings.Contains(mime, "webm"):
			ext = "webm"
		case strings.Contains(mime, "ogg"):
			ext = "ogg"
		case strings.Contains(mime, "wave"), strings.Contains(mime, "wav"):
			ext = "wav"
		case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
			ext = "mp3"
		}
	}

	now := time.Now()
	storageKey := filepath.ToSlash(filepath.Join(
		prefix,
		now.Format("2006"),
		now.Format("01"),
		uuid.NewString()+"_"+strconv.FormatUint(uid, 10)+"."+ext,
	))

	fullPath := filepath.Join(h.UploadDir, storageKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, "", errors.New("failed to save file")
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return 0, "", errors.New("failed to save file")
	}

	fileID, err := h.Svc.SaveFile(r.Context(), uid, storageKey, mime, int64(len(data)))
	if err != nil {
		_ = os.Remove(fullPath)
		return 0, "", errors.New("failed to save file")
	}
	return fileID, storageKey, nil
}

func parseID(s string) uint64 {
	id, _ := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return id
}
