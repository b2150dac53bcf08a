package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/internal/vendor"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

// multipart form overhead allowed on top of the documents themselves
const formOverhead = 1 << 20

// VendorRequest accepts the become-a-vendor multipart form.
func VendorRequest(svc vendor.Service, maxFileBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "vendor")
			return
		}
		ctx := r.Context()
		limit := maxFileBytes*vendor.MaxDocuments + formOverhead
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		if err := r.ParseMultipartForm(maxFileBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodePayloadSize, err, "request too large").
					WithDetails(map[string]any{"maxBytes": limit}))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		app := vendor.Application{
			BusinessName: r.FormValue("businessName"),
			BusinessType: r.FormValue("businessType"),
			Phone:        r.FormValue("phone"),
			Address:      r.FormValue("address"),
			TaxID:        r.FormValue("taxId"),
			Description:  r.FormValue("description"),
		}

		var uploads []vendor.Upload
		var opened []multipart.File
		defer func() {
			for _, f := range opened {
				_ = f.Close()
			}
		}()
		for field, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload"))
					return
				}
				opened = append(opened, file)
				uploads = append(uploads, vendor.Upload{Field: field, Filename: header.Filename, Reader: file})
			}
		}

		status, err := svc.Submit(ctx, middleware.TokenFromContext(ctx), middleware.RoleFromContext(ctx), app, uploads)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, status)
	}
}
