package handlers

import (
	"context"
	"net/http"

	"github.com/bomanihosts/backend/internal/domain/contact"
	"github.com/bomanihosts/backend/internal/validation"
)

const contactReceivedMessage = "Thank you for contacting us. We will respond shortly."

type ContactService interface {
	Submit(ctx context.Context, sub contact.Submission) (*contact.Message, error)
}

type ContactHandler struct {
	service ContactService
	env     string
}

func NewContactHandler(service ContactService, env string) *ContactHandler {
	return &ContactHandler{service: service, env: env}
}

type ContactResponse struct {
	ID      int64  `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Create handles POST /api/contact/. The response does not depend on whether
// the notification emails went out.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission
	if !decodeJSON(w, r, h.env, &sub) {
		return
	}

	msg, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		if errs, ok := validation.AsErrors(err); ok {
			writeValidation(w, r, h.env, errs)
			return
		}
		writeServerError(w, r, h.env, err)
		return
	}

	writeJSON(w, http.StatusCreated, ContactResponse{
		ID:      msg.ID,
		Status:  "received",
		Message: contactReceivedMessage,
	})
}
