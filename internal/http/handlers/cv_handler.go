package handlers

import (
	"net/http"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/http/middleware"
	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/internal/service"
	"github.com/go-chi/chi/v5"
)

type CVHandler struct {
	CVs *service.CVService
	// Idempotency wraps CV submission when set.
	Idempotency func(http.Handler) http.Handler
}

func NewCVHandler(cvs *service.CVService, idempotency func(http.Handler) http.Handler) *CVHandler {
	return &CVHandler{CVs: cvs, Idempotency: idempotency}
}

// Routes expects Protect to run before it.
func (h *CVHandler) Routes() chi.Router {
	r := chi.NewRouter()
	submit := r.With()
	if h.Idempotency != nil {
		submit = r.With(h.Idempotency)
	}
	submit.Post("/", h.create)
	r.Get("/user/pending", h.listOwnPending)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RestrictTo(domain.RoleAdmin))
		r.Get("/admin/pending", h.listPending)
		r.Patch("/admin/{cvId}/deliver", h.deliver)
	})
	return r
}

func (h *CVHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateCVRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	cv, err := h.CVs.Create(r.Context(), middleware.IdentityFrom(r.Context()), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, map[string]any{"cv": cv})
}

func (h *CVHandler) listOwnPending(w http.ResponseWriter, r *http.Request) {
	cvs, err := h.CVs.ListOwnPending(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.List(w, cvs)
}

func (h *CVHandler) listPending(w http.ResponseWriter, r *http.Request) {
	cvs, err := h.CVs.ListPending(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.List(w, cvs)
}

func (h *CVHandler) deliver(w http.ResponseWriter, r *http.Request) {
	cv, err := h.CVs.Deliver(r.Context(), chi.URLParam(r, "cvId"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"cv": cv})
}
