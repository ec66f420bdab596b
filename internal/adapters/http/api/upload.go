package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

// Request fields read by the upload handler.
const (
	formFileField        = "file"
	formParticipantField = "participant_id"
	headerParticipant    = "X-Participant-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// UploadHandler handles the submit phase.
type UploadHandler struct {
	deps     UploadDependencies
	maxBytes int64
	logger   logger.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps UploadDependencies, maxBytes int64, l logger.Logger) *UploadHandler {
	return &UploadHandler{deps: deps, maxBytes: maxBytes, logger: l}
}

// HandleUpload handles POST /upload/{task_id} multipart requests.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload"

	taskID, err := parseTaskID(r.PathValue("task_id"))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, errors.New("task id must be an integer")))
		return
	}

	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)
	file, header, err := r.FormFile(formFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, NewKind(op, ErrPayloadTooLarge))
			return
		}
		writeError(w, WrapKind(op, ErrBadRequest, errors.New("no file uploaded")))
		return
	}
	defer file.Close()

	content, err := readUpload(file, h.maxBytes)
	if err != nil {
		writeError(w, WrapKind(op, ErrPayloadTooLarge, err))
		return
	}

	participant, fromFilename := participantOf(r, header)
	if fromFilename {
		if err := model.ValidateParticipantID(participant); err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, fmt.Errorf(
				"participant_id is required: filename %q does not name a participant (%s)",
				filepath.Base(header.Filename), message(err))))
			return
		}
	}

	req := service.SubmitRequest{
		ParticipantID:  participant,
		TaskID:         taskID,
		Filename:       header.Filename,
		Content:        content,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotencyKey)),
	}
	res, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		if !errors.Is(err, model.ErrQuotaExceeded) && !errors.Is(err, model.ErrValidation) && !errors.Is(err, model.ErrNotFound) {
			h.logger.Error(r.Context(), "upload failed", logger.String("participant_id", req.ParticipantID), logger.Error(err))
		}
		writeError(w, Wrap(op, err))
		return
	}

	status := http.StatusCreated
	msg := "submission received"
	if res.Replayed {
		status = http.StatusOK
		msg = "submission already received"
	}
	writeJSON(w, status, types.UploadResult{
		SubmissionID:  res.Submission.ID,
		ParticipantID: res.Submission.ParticipantID,
		TaskID:        res.Submission.TaskID,
		Status:        string(res.Submission.Status),
		Remaining:     res.Remaining,
		Replayed:      res.Replayed,
		Message:       msg,
	})
}

func readUpload(file multipart.File, limit int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, errors.New("file exceeds the upload limit")
	}
	return content, nil
}

// participantOf resolves the submitting participant: form field, then
// header, then the uploaded filename without its extension. fromFilename
// reports the last case.
func participantOf(r *http.Request, header *multipart.FileHeader) (id string, fromFilename bool) {
	if v := strings.TrimSpace(r.FormValue(formParticipantField)); v != "" {
		return v, false
	}
	if v := strings.TrimSpace(r.Header.Get(headerParticipant)); v != "" {
		return v, false
	}
	name := filepath.Base(header.Filename)
	return strings.TrimSuffix(name, filepath.Ext(name)), true
}
