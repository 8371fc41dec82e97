package handlers

import (
	"net/http"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/http/middleware"
	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/internal/service"
	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	Reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

// Routes expects Protect to run before it.
func (h *ReviewHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/my-reviews", h.myReviews)
	r.Get("/{reviewId}", h.get)
	r.With(middleware.RestrictTo(domain.RoleAdmin)).Post("/cv/{cvId}", h.post)
	return r
}

func (h *ReviewHandler) myReviews(w http.ResponseWriter, r *http.Request) {
	cvs, err := h.Reviews.MyReviews(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.List(w, cvs)
}

func (h *ReviewHandler) get(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Reviews.Get(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "reviewId"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"review": rv})
}

func (h *ReviewHandler) post(w http.ResponseWriter, r *http.Request) {
	var in domain.PostReviewRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Reviews.Post(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "cvId"), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, out)
}
