package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"brandgen/internal/httpkit"
	"brandgen/internal/models"
	"brandgen/internal/naming"
	"brandgen/internal/pkg/errors"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/ports"
	"brandgen/internal/upload"
)

// multipartOverhead bounds headers and boundaries on top of the file bytes.
const multipartOverhead = 1 << 20

// UploadBatch stores every file sent under the "images" field. Files are
// stored as they are read; a later failure does not undo earlier ones.
// Storing a name that already exists replaces the previous file.
func (h *Handler) UploadBatch(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxFiles)*h.maxFileBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return errors.New(errors.CodeBadRequest, "invalid multipart form")
	}

	var saved []upload.SavedFile
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return readError(err)
		}
		if part.FormName() != upload.FieldName || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if len(saved) >= h.maxFiles {
			_ = part.Close()
			return errors.Newf(errors.CodeBadRequest, "too many files, at most %d per request", h.maxFiles).
				WithField("limit", h.maxFiles)
		}

		f, err := h.storePart(ctx, log, part)
		_ = part.Close()
		if err != nil {
			return err
		}
		saved = append(saved, f)
	}

	if len(saved) == 0 {
		return errors.New(errors.CodeBadRequest, "No files were uploaded")
	}

	count := len(saved)
	httpkit.WriteJSON(w, http.StatusOK, upload.Response{
		Success: true,
		Count:   &count,
		Files:   saved,
	})
	return nil
}

func (h *Handler) storePart(ctx context.Context, log *logger.Logger, part *multipart.Part) (upload.SavedFile, error) {
	original := part.FileName()

	data, err := io.ReadAll(io.LimitReader(part, h.maxFileBytes+1))
	if err != nil {
		return upload.SavedFile{}, readError(err)
	}
	if int64(len(data)) > h.maxFileBytes {
		return upload.SavedFile{}, errors.Newf(errors.CodePayloadTooLarge, "file too large: %s", original).
			WithField("limit_bytes", h.maxFileBytes)
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	name := naming.StoredName(original, contentType)

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   name,
		ContentType: contentType,
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		return upload.SavedFile{}, errors.Storage(err, name)
	}
	log.Info("file stored", "original", original, "saved", name, "size", out.Size)

	if h.ledger != nil {
		rec := models.UploadRecord{
			SavedName:    name,
			OriginalName: original,
			Size:         out.Size,
			ContentType:  contentType,
			Provider:     h.sp.Provider(),
			ObjectKey:    out.ObjectKey,
			UploadedAt:   time.Now().UTC(),
		}
		if err := h.ledger.Record(ctx, rec); err != nil {
			// El archivo ya quedó guardado; el ledger es secundario.
			log.Warn("upload ledger write failed", "saved", name, "error", err.Error())
		}
	}

	return upload.SavedFile{OriginalName: original, SavedName: name, Size: out.Size}, nil
}

func readError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return errors.Newf(errors.CodePayloadTooLarge, "request body too large, limit %d bytes", tooBig.Limit)
	}
	return errors.WrapWithCode(err, errors.CodeBadRequest, "upload.read", "invalid multipart form")
}

// ServeUpload returns a stored file, or redirects to a presigned URL when
// the provider issues them.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.NotFound("file", name)
	}

	signed, err := h.sp.GetSignedURL(ctx, name, h.presignTTL)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeStorage, "storage.sign", "failed to sign url")
	}
	if signed.URL != "" {
		http.Redirect(w, r, signed.URL, http.StatusFound)
		return nil
	}

	rc, contentType, size, err := h.sp.GetObject(ctx, name)
	if errors.Is(err, ports.ErrObjectNotFound) {
		return errors.NotFound("file", name)
	}
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeStorage, "storage.get", "failed to read file")
	}
	defer rc.Close()

	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(ctx).Warn("stream interrupted", "name", name, "error", err.Error())
	}
	return nil
}
