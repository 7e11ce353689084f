package orders

import (
	"errors"
	"net/http"

	"github.com/shipdesk/shipdesk-backend/api/middleware"
	"github.com/shipdesk/shipdesk-backend/api/responses"
	"github.com/shipdesk/shipdesk-backend/internal/imports"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
)

const maxImportBytes = 10 << 20

// Import reads a CSV or XLSX upload from the multipart field "file".
func Import(svc imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds 10MB"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").
				WithDetails(map[string]any{"field": "file"}))
			return
		}
		defer file.Close()

		result, err := svc.Import(r.Context(), ownerID, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
