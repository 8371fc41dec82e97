package handlers

import (
	"net/http"

	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/internal/service"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	Admin *service.AdminService
	CVs   *service.CVService
}

func NewAdminHandler(admin *service.AdminService, cvs *service.CVService) *AdminHandler {
	return &AdminHandler{Admin: admin, CVs: cvs}
}

// Routes expects Protect and RestrictTo(admin) to run before it.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboard-stats", h.dashboardStats)
	r.Get("/all-cvs", h.allCVs)
	r.Get("/reviewed-cvs", h.reviewedCVs)
	return r
}

func (h *AdminHandler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Admin.DashboardStats(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, stats)
}

func (h *AdminHandler) allCVs(w http.ResponseWriter, r *http.Request) {
	cvs, err := h.CVs.ListAll(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.List(w, cvs)
}

func (h *AdminHandler) reviewedCVs(w http.ResponseWriter, r *http.Request) {
	cvs, err := h.CVs.ListReviewed(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.List(w, cvs)
}
