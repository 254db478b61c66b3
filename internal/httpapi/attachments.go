package httpapi

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
)

// handleDownloadAttachment proxies attachment content from Redmine so that
// front-ends never need direct access to the Redmine host. The caller's own
// API key scopes which attachments are reachable.
func (a *API) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	id := pathInt(r, "id")

	att, err := a.redmine.GetAttachment(r.Context(), claims.APIKey, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	body, contentType, err := a.redmine.DownloadAttachment(r.Context(), claims.APIKey, id, att.Filename)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+att.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"attachment_id": id,
			"trace_id":      middleware.TraceIDFromContext(r.Context()),
		}).Warn("attachment stream interrupted")
	}
}
