package domain

import (
	"fmt"
	"time"
)

type ReviewStatus string

const (
	ReviewDraft     ReviewStatus = "draft"
	ReviewCompleted ReviewStatus = "completed"
	ReviewDelivered ReviewStatus = "delivered"
)

type SectionStatus string

const (
	SectionOK        SectionStatus = "ok"
	SectionMissing   SectionStatus = "missing"
	SectionNeedsWork SectionStatus = "needs_work"
	SectionExcellent SectionStatus = "excellent"
)

var validReadiness = map[string]bool{
	"Excellent":  true,
	"Good":       true,
	"Needs work": true,
	"Poor":       true,
}

const (
	defaultReadiness = "Needs work"
	maxSectionScore  = 5
)

type Example struct {
	Bad       string `json:"bad,omitempty" bson:"bad,omitempty"`
	Better    string `json:"better,omitempty" bson:"better,omitempty"`
	WhyBetter string `json:"why_better,omitempty" bson:"why_better,omitempty"`
}

type Section struct {
	SectionName         string        `json:"section_name" bson:"section_name"`
	SectionStatus       SectionStatus `json:"section_status" bson:"section_status"`
	Strengths           []string      `json:"strengths" bson:"strengths"`
	Weaknesses          []string      `json:"weaknesses" bson:"weaknesses"`
	ActionableEdits     []string      `json:"actionable_edits" bson:"actionable_edits"`
	ExamplesBadToBetter []Example     `json:"examples_bad_to_better" bson:"examples_bad_to_better"`
	MissingContent      []string      `json:"missing_content" bson:"missing_content"`
	SectionScore        float64       `json:"section_score" bson:"section_score"`
	Justification       string        `json:"justification,omitempty" bson:"justification,omitempty"`
}

type ScoreEntry struct {
	SectionName string  `json:"section_name" bson:"section_name"`
	Score       float64 `json:"score" bson:"score"`
}

type GlobalSummary struct {
	OverallReadiness string       `json:"overall_readiness" bson:"overall_readiness"`
	TopFixes         []string     `json:"top_fixes" bson:"top_fixes"`
	QuestionsForUser []string     `json:"questions_for_user" bson:"questions_for_user"`
	ScoringBreakdown []ScoreEntry `json:"scoring_breakdown" bson:"scoring_breakdown"`
	TotalScore       float64      `json:"total_score" bson:"total_score"`
}

type RewrittenSection struct {
	SectionName string `json:"section_name" bson:"section_name"`
	Content     string `json:"content" bson:"content"`
}

type RewrittenCV struct {
	Sections []RewrittenSection `json:"sections" bson:"sections"`
}

type ReviewMeta struct {
	Version             string     `json:"version" bson:"version"`
	Notes               string     `json:"notes,omitempty" bson:"notes,omitempty"`
	ReviewerName        string     `json:"reviewer_name,omitempty" bson:"reviewer_name,omitempty"`
	ReviewDate          *time.Time `json:"review_date,omitempty" bson:"review_date,omitempty"`
	TimeInvestmentHours *float64   `json:"time_investment_hours,omitempty" bson:"time_investment_hours,omitempty"`
}

type Review struct {
	ID         string       `json:"_id"`
	CVID       string       `json:"cvId"`
	UserID     string       `json:"userId"`
	ReviewerID string       `json:"reviewer_id,omitempty"`
	ReviewType ServiceLevel `json:"review_type"`

	Sections      []Section      `json:"sections"`
	GlobalSummary *GlobalSummary `json:"global_summary,omitempty"`
	RewrittenCV   *RewrittenCV   `json:"rewritten_cv,omitempty"`
	Meta          *ReviewMeta    `json:"meta,omitempty"`

	Status          ReviewStatus `json:"status"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	DeliveredAt     *time.Time   `json:"delivered_at,omitempty"`
	AdditionalNotes string       `json:"additional_notes,omitempty"`
	UserRating      *int         `json:"user_rating,omitempty"`
	UserFeedback    string       `json:"user_feedback,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostReviewRequest is the JSON body an admin uploads for a CV.
type PostReviewRequest struct {
	ReviewType      ServiceLevel   `json:"review_type"`
	Sections        []Section      `json:"sections"`
	GlobalSummary   *GlobalSummary `json:"global_summary"`
	RewrittenCV     *RewrittenCV   `json:"rewritten_cv"`
	Meta            *ReviewMeta    `json:"meta"`
	AdditionalNotes string         `json:"additional_notes"`
}

func (r *PostReviewRequest) Validate() error {
	verr := NewValidationError("Review validation failed")

	switch r.ReviewType {
	case "", ServiceStandard, ServicePremium:
	default:
		verr.Add("review_type", "Review type must be standard or premium")
	}
	for i, s := range r.Sections {
		prefix := fmt.Sprintf("sections[%d]", i)
		switch s.SectionStatus {
		case "", SectionOK, SectionMissing, SectionNeedsWork, SectionExcellent:
		default:
			verr.Add(prefix+".section_status", "Invalid section status")
		}
		if s.SectionScore < 0 || s.SectionScore > maxSectionScore {
			verr.Add(prefix+".section_score", "Section score must be between 0 and 5")
		}
	}
	if g := r.GlobalSummary; g != nil {
		if g.OverallReadiness != "" && !validReadiness[g.OverallReadiness] {
			verr.Add("global_summary.overall_readiness", "Invalid overall readiness")
		}
		for i, e := range g.ScoringBreakdown {
			if e.Score < 0 || e.Score > maxSectionScore {
				verr.Add(fmt.Sprintf("global_summary.scoring_breakdown[%d].score", i), "Score must be between 0 and 5")
			}
		}
		if g.TotalScore < 0 {
			verr.Add("global_summary.total_score", "Total score cannot be negative")
		}
	}
	if m := r.Meta; m != nil && m.TimeInvestmentHours != nil && *m.TimeInvestmentHours < 0 {
		verr.Add("meta.time_investment_hours", "Time investment cannot be negative")
	}
	return verr.OrNil()
}

// NewReview builds a review from an uploaded body with defaults applied.
func NewReview(cv *CV, reviewerID string, r *PostReviewRequest, now time.Time) *Review {
	rv := &Review{
		CVID:            cv.ID,
		UserID:          cv.UserID,
		ReviewerID:      reviewerID,
		ReviewType:      r.ReviewType,
		Sections:        r.Sections,
		GlobalSummary:   r.GlobalSummary,
		RewrittenCV:     r.RewrittenCV,
		Meta:            r.Meta,
		AdditionalNotes: r.AdditionalNotes,
		Status:          ReviewDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rv.ReviewType == "" {
		rv.ReviewType = ServiceStandard
	}
	if rv.Sections == nil {
		rv.Sections = []Section{}
	}
	for i := range rv.Sections {
		if rv.Sections[i].SectionStatus == "" {
			rv.Sections[i].SectionStatus = SectionOK
		}
	}
	if rv.GlobalSummary == nil {
		rv.GlobalSummary = &GlobalSummary{}
	}
	if rv.GlobalSummary.OverallReadiness == "" {
		rv.GlobalSummary.OverallReadiness = defaultReadiness
	}
	if rv.Meta == nil {
		rv.Meta = &ReviewMeta{}
	}
	if rv.Meta.Version == "" {
		rv.Meta.Version = "v1"
	}
	if rv.Meta.ReviewDate == nil {
		t := now
		rv.Meta.ReviewDate = &t
	}
	return rv
}

// SetStatus changes the status and stamps completed_at / delivered_at on the
// first transition into those states.
func (r *Review) SetStatus(status ReviewStatus, now time.Time) {
	r.Status = status
	switch status {
	case ReviewCompleted:
		if r.CompletedAt == nil {
			t := now
			r.CompletedAt = &t
		}
	case ReviewDelivered:
		if r.DeliveredAt == nil {
			t := now
			r.DeliveredAt = &t
		}
	}
	r.UpdatedAt = now
}

// CalculateOverallScore sums the section scores into the global summary.
func (r *Review) CalculateOverallScore() float64 {
	if len(r.Sections) == 0 {
		return 0
	}
	var total float64
	for _, s := range r.Sections {
		total += s.SectionScore
	}
	if r.GlobalSummary == nil {
		r.GlobalSummary = &GlobalSummary{OverallReadiness: defaultReadiness}
	}
	r.GlobalSummary.TotalScore = total
	return total
}

type ReviewSummary struct {
	ID               string       `json:"id"`
	ReviewType       ServiceLevel `json:"review_type"`
	Status           ReviewStatus `json:"status"`
	TotalScore       float64      `json:"total_score"`
	OverallReadiness string       `json:"overall_readiness"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	DeliveredAt      *time.Time   `json:"delivered_at,omitempty"`
	UserRating       *int         `json:"user_rating,omitempty"`
}

func (r *Review) Summary() ReviewSummary {
	s := ReviewSummary{
		ID:               r.ID,
		ReviewType:       r.ReviewType,
		Status:           r.Status,
		OverallReadiness: defaultReadiness,
		CompletedAt:      r.CompletedAt,
		DeliveredAt:      r.DeliveredAt,
		UserRating:       r.UserRating,
	}
	if r.GlobalSummary != nil {
		s.TotalScore = r.GlobalSummary.TotalScore
		if r.GlobalSummary.OverallReadiness != "" {
			s.OverallReadiness = r.GlobalSummary.OverallReadiness
		}
	}
	return s
}

// TurnaroundDays is the whole days between creation and completion, or -1
// while the review is not completed.
func (r *Review) TurnaroundDays() int {
	if r.CompletedAt == nil {
		return -1
	}
	return int(r.CompletedAt.Sub(r.CreatedAt).Hours() / 24)
}

// PostedReview is returned after a review upload.
type PostedReview struct {
	Review    *Review    `json:"review"`
	CVDetails *CVDetails `json:"cv_details"`
	Message   string     `json:"message"`
}

type CVDetails struct {
	SubmissionDate          time.Time    `json:"submission_date"`
	JobRole                 JobRole      `json:"job_role"`
	TargetMarkets           []string     `json:"target_markets"`
	ServiceLevel            ServiceLevel `json:"service_level"`
	YearOfBirth             int          `json:"year_of_birth"`
	YearOfMedicalGraduation int          `json:"year_of_medical_graduation"`
	UserInfo                *OwnerInfo   `json:"user_info,omitempty"`
}

type OwnerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func NewCVDetails(cv *CV, owner *User) *CVDetails {
	d := &CVDetails{
		SubmissionDate:          cv.CreatedAt,
		JobRole:                 cv.ApplyingForJobRole,
		TargetMarkets:           cv.TargetMarkets,
		ServiceLevel:            cv.ServiceLevel,
		YearOfBirth:             cv.YearOfBirth,
		YearOfMedicalGraduation: cv.YearOfMedicalGraduation,
	}
	if owner != nil {
		d.UserInfo = &OwnerInfo{
			Name:  owner.FirstName + " " + owner.LastName,
			Email: owner.Email,
			Phone: owner.PhoneNumber,
		}
	}
	return d
}

// DashboardStats are the counters shown to admins.
type DashboardStats struct {
	TotalCVs        int64 `json:"total_cvs"`
	TotalPendingCVs int64 `json:"total_pending_cvs"`
	TotalReviews    int64 `json:"total_reviews"`
}
