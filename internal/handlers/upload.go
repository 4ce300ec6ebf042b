package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"

	"vieux-grimoire-api/internal/images"
	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/utils"
)

const (
	bookField  = "book"
	imageField = "image"

	multipartMemory     = 1 << 20
	defaultMaxUploadLen = 10 << 20
)

var ErrInvalidForm = errors.New("invalid form")

// UploadReader copies the image part of a book form into TempDir. The temp file is
// released by BookForm.Release whatever happened to it in between.
type UploadReader struct {
	TempDir  string
	MaxBytes int64
	Remover  images.Remover
}

type BookForm struct {
	Payload []byte
	Upload  *images.Upload

	cleanup []func()
}

func (f *BookForm) Release() {
	for _, fn := range f.cleanup {
		fn()
	}
}

// Read accepts either multipart/form-data (JSON in "book", file in "image") or a raw
// JSON body without image.
func (u *UploadReader) Read(w http.ResponseWriter, r *http.Request) (*BookForm, error) {
	maxBytes := u.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadLen
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		return &BookForm{Payload: payload}, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	form := &BookForm{
		Payload: []byte(r.FormValue(bookField)),
		cleanup: []func(){func() { _ = r.MultipartForm.RemoveAll() }},
	}

	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		form.Release()
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp(u.TempDir, "upload-*")
	if err != nil {
		form.Release()
		return nil, fmt.Errorf("create temp upload: %w", err)
	}
	form.cleanup = append(form.cleanup, func() { _ = u.Remover.Remove(tmp.Name()) })

	_, copyErr := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		form.Release()
		return nil, fmt.Errorf("store temp upload: %w", err)
	}

	form.Upload = &images.Upload{TempPath: tmp.Name(), OriginalName: header.Filename}
	return form, nil
}

func writeFormError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidForm) {
		utils.JSONError(w, "Invalid book form", http.StatusBadRequest)
		return
	}
	log := logger.Get()
	log.Error().Err(err).Msg("reading upload failed")
	utils.JSONError(w, "Internal server error", http.StatusInternalServerError)
}
