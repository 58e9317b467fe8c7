package daemon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"facephrase/internal/api"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/services"
)

const (
	// MaxScriptRunes bounds the script length in characters.
	MaxScriptRunes = 200
	// MaxUploadBytes bounds the uploaded photo.
	MaxUploadBytes = 10 << 20

	// multipartOverhead leaves room for the text fields and part headers.
	multipartOverhead = 1 << 20
	multipartMemory   = 1 << 20
	sniffLength       = 512
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// uploadError is a client-facing validation failure.
type uploadError struct {
	message string
}

func (e uploadError) Error() string { return e.message }

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	script := r.FormValue("script")
	if err := validateScript(script); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateConsent(r.FormValue("consent")); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file, header, err := r.FormFile("selfie")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing selfie")
		return
	}
	defer file.Close()
	ext, err := validateExtension(header.Filename)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.NewString()
	ctx := services.WithJobID(r.Context(), id)
	logger := logging.WithContext(ctx, s.logger)

	imagePath := jobs.UploadPath(s.cfg.Paths.UploadsDir, id, ext)
	if err := saveUpload(file, imagePath); err != nil {
		_ = os.RemoveAll(filepath.Dir(imagePath))
		var invalid uploadError
		if errors.As(err, &invalid) {
			logger.Info("upload rejected",
				logging.String("reason", invalid.message),
				logging.String(logging.FieldEventType, "upload_rejected"),
			)
			s.writeError(w, http.StatusBadRequest, invalid.message)
			return
		}
		logging.ErrorWithContext(logger, "failed to store upload", "upload_store_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check uploads_dir permissions and free space"),
		)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	jobID, err := s.daemon.service.Submit(ctx, api.SubmitRequest{
		ID:        id,
		Script:    script,
		ImagePath: imagePath,
		Mode:      s.cfg.Animation.Mode,
	})
	if err != nil {
		_ = os.RemoveAll(filepath.Dir(imagePath))
		s.writeServiceError(w, r, err)
		return
	}
	logger.Info("job accepted",
		logging.Int("script_runes", utf8.RuneCountInString(script)),
		logging.String(logging.FieldEventType, "job_accepted"),
	)
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: jobID})
}

func validateScript(script string) error {
	if strings.TrimSpace(script) == "" || utf8.RuneCountInString(script) > MaxScriptRunes {
		return uploadError{message: "Invalid script"}
	}
	return nil
}

func validateConsent(consent string) error {
	switch consent {
	case "true", "True", "1":
		return nil
	default:
		return uploadError{message: "Consent required"}
	}
}

func validateExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", uploadError{message: "Unsupported file type"}
	}
	return ext, nil
}

// saveUpload streams src to path, enforcing the size limit and sniffing the
// leading bytes for an accepted image type.
func saveUpload(src multipart.File, path string) error {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return uploadError{message: "Invalid image mime"}
	}
	mime := http.DetectContentType(head)
	if _, ok := allowedMIMETypes[mime]; !ok {
		return uploadError{message: "Invalid image mime"}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	reader := io.MultiReader(bytes.NewReader(head), src)
	written, err := io.Copy(dst, io.LimitReader(reader, MaxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	if written > MaxUploadBytes {
		return uploadError{message: "File too large"}
	}
	return dst.Close()
}
