package mongodb

import (
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
)

type userDoc struct {
	ID                string      `bson:"_id"`
	FirstName         string      `bson:"firstName"`
	LastName          string      `bson:"lastName"`
	Email             string      `bson:"email"`
	PhoneNumber       string      `bson:"phoneNumber"`
	Role              domain.Role `bson:"role"`
	Active            bool        `bson:"active"`
	Password          string      `bson:"password"`
	PasswordChangedAt *time.Time  `bson:"passwordChangedAt,omitempty"`
	PasswordResetLink string      `bson:"passwordResetLink,omitempty"`
	PasswordExpiresAt *time.Time  `bson:"passwordExpiresAt,omitempty"`
	CreatedAt         time.Time   `bson:"createdAt"`
	UpdatedAt         time.Time   `bson:"updatedAt"`
}

func toUserDoc(u *domain.User) *userDoc {
	return &userDoc{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		PhoneNumber:       u.PhoneNumber,
		Role:              u.Role,
		Active:            u.Active,
		Password:          u.PasswordHash,
		PasswordChangedAt: u.PasswordChangedAt,
		PasswordResetLink: u.PasswordResetLink,
		PasswordExpiresAt: u.PasswordExpiresAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:                d.ID,
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		Email:             d.Email,
		PhoneNumber:       d.PhoneNumber,
		Role:              d.Role,
		Active:            d.Active,
		PasswordHash:      d.Password,
		PasswordChangedAt: d.PasswordChangedAt,
		PasswordResetLink: d.PasswordResetLink,
		PasswordExpiresAt: d.PasswordExpiresAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type cvDoc struct {
	ID                                string                      `bson:"_id"`
	UserID                            string                      `bson:"userId"`
	FirstName                         string                      `bson:"firstName"`
	LastName                          string                      `bson:"lastName"`
	YearOfBirth                       int                         `bson:"yearOfBirth"`
	YearOfMedicalGraduation           int                         `bson:"yearOfMedicalGraduation"`
	ApplyingForJobRole                domain.JobRole              `bson:"applyingForJobRole"`
	TargetMarkets                     []string                    `bson:"targetMarkets"`
	PreviousExperiences               []domain.PreviousExperience `bson:"previousExperiences"`
	ResearchExperience                string                      `bson:"researchExperience,omitempty"`
	TeachingExperience                string                      `bson:"teachingExperience,omitempty"`
	LeadershipManagementExperience    string                      `bson:"leadershipManagementExperience,omitempty"`
	AuditQualityImprovementExperience string                      `bson:"auditQualityImprovementExperience,omitempty"`
	ClinicalSkillsProcedureCompetency string                      `bson:"clinicalSkillsProcedureCompetency,omitempty"`
	PersonalStatement                 string                      `bson:"personalStatement,omitempty"`
	ServiceLevel                      domain.ServiceLevel         `bson:"serviceLevel"`
	Status                            domain.CVStatus             `bson:"status"`
	ReviewID                          string                      `bson:"reviewId,omitempty"`
	SubmittedAt                       *time.Time                  `bson:"submittedAt,omitempty"`
	ReviewedAt                        *time.Time                  `bson:"reviewedAt,omitempty"`
	CreatedAt                         time.Time                   `bson:"createdAt"`
	UpdatedAt                         time.Time                   `bson:"updatedAt"`
}

func toCVDoc(cv *domain.CV) *cvDoc {
	return &cvDoc{
		ID:                                cv.ID,
		UserID:                            cv.UserID,
		FirstName:                         cv.FirstName,
		LastName:                          cv.LastName,
		YearOfBirth:                       cv.YearOfBirth,
		YearOfMedicalGraduation:           cv.YearOfMedicalGraduation,
		ApplyingForJobRole:                cv.ApplyingForJobRole,
		TargetMarkets:                     cv.TargetMarkets,
		PreviousExperiences:               cv.PreviousExperiences,
		ResearchExperience:                cv.ResearchExperience,
		TeachingExperience:                cv.TeachingExperience,
		LeadershipManagementExperience:    cv.LeadershipManagementExperience,
		AuditQualityImprovementExperience: cv.AuditQualityImprovementExperience,
		ClinicalSkillsProcedureCompetency: cv.ClinicalSkillsProcedureCompetency,
		PersonalStatement:                 cv.PersonalStatement,
		ServiceLevel:                      cv.ServiceLevel,
		Status:                            cv.Status,
		ReviewID:                          cv.ReviewID,
		SubmittedAt:                       cv.SubmittedAt,
		ReviewedAt:                        cv.ReviewedAt,
		CreatedAt:                         cv.CreatedAt,
		UpdatedAt:                         cv.UpdatedAt,
	}
}

func (d *cvDoc) toDomain() *domain.CV {
	exps := d.PreviousExperiences
	if exps == nil {
		exps = []domain.PreviousExperience{}
	}
	return &domain.CV{
		ID:                                d.ID,
		UserID:                            d.UserID,
		FirstName:                         d.FirstName,
		LastName:                          d.LastName,
		YearOfBirth:                       d.YearOfBirth,
		YearOfMedicalGraduation:           d.YearOfMedicalGraduation,
		ApplyingForJobRole:                d.ApplyingForJobRole,
		TargetMarkets:                     d.TargetMarkets,
		PreviousExperiences:               exps,
		ResearchExperience:                d.ResearchExperience,
		TeachingExperience:                d.TeachingExperience,
		LeadershipManagementExperience:    d.LeadershipManagementExperience,
		AuditQualityImprovementExperience: d.AuditQualityImprovementExperience,
		ClinicalSkillsProcedureCompetency: d.ClinicalSkillsProcedureCompetency,
		PersonalStatement:                 d.PersonalStatement,
		ServiceLevel:                      d.ServiceLevel,
		Status:                            d.Status,
		ReviewID:                          d.ReviewID,
		SubmittedAt:                       d.SubmittedAt,
		ReviewedAt:                        d.ReviewedAt,
		CreatedAt:                         d.CreatedAt,
		UpdatedAt:                         d.UpdatedAt,
	}
}

type reviewDoc struct {
	ID              string                `bson:"_id"`
	CVID            string                `bson:"cvId"`
	UserID          string                `bson:"userId"`
	ReviewerID      string                `bson:"reviewerId,omitempty"`
	ReviewType      domain.ServiceLevel   `bson:"review_type"`
	Sections        []domain.Section      `bson:"sections"`
	GlobalSummary   *domain.GlobalSummary `bson:"global_summary,omitempty"`
	RewrittenCV     *domain.RewrittenCV   `bson:"rewritten_cv,omitempty"`
	Meta            *domain.ReviewMeta    `bson:"meta,omitempty"`
	Status          domain.ReviewStatus   `bson:"status"`
	CompletedAt     *time.Time            `bson:"completed_at,omitempty"`
	DeliveredAt     *time.Time            `bson:"delivered_at,omitempty"`
	AdditionalNotes string                `bson:"additional_notes,omitempty"`
	UserRating      *int                  `bson:"user_rating,omitempty"`
	UserFeedback    string                `bson:"user_feedback,omitempty"`
	CreatedAt       time.Time             `bson:"createdAt"`
	UpdatedAt       time.Time             `bson:"updatedAt"`
}

func toReviewDoc(r *domain.Review) *reviewDoc {
	return &reviewDoc{
		ID:              r.ID,
		CVID:            r.CVID,
		UserID:          r.UserID,
		ReviewerID:      r.ReviewerID,
		ReviewType:      r.ReviewType,
		Sections:        r.Sections,
		GlobalSummary:   r.GlobalSummary,
		RewrittenCV:     r.RewrittenCV,
		Meta:            r.Meta,
		Status:          r.Status,
		CompletedAt:     r.CompletedAt,
		DeliveredAt:     r.DeliveredAt,
		AdditionalNotes: r.AdditionalNotes,
		UserRating:      r.UserRating,
		UserFeedback:    r.UserFeedback,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d *reviewDoc) toDomain() *domain.Review {
	sections := d.Sections
	if sections == nil {
		sections = []domain.Section{}
	}
	return &domain.Review{
		ID:              d.ID,
		CVID:            d.CVID,
		UserID:          d.UserID,
		ReviewerID:      d.ReviewerID,
		ReviewType:      d.ReviewType,
		Sections:        sections,
		GlobalSummary:   d.GlobalSummary,
		RewrittenCV:     d.RewrittenCV,
		Meta:            d.Meta,
		Status:          d.Status,
		CompletedAt:     d.CompletedAt,
		DeliveredAt:     d.DeliveredAt,
		AdditionalNotes: d.AdditionalNotes,
		UserRating:      d.UserRating,
		UserFeedback:    d.UserFeedback,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
