package domain

import (
	"fmt"
	"time"

	"github.com/diagnosis/medcv-review/internal/utils"
)

type CVStatus string

const (
	CVPending  CVStatus = "pending"
	CVReviewed CVStatus = "reviewed"
)

type JobRole string

const (
	JobRoleTier1       JobRole = "tier1"
	JobRoleMiddleGrade JobRole = "middleGrade"
	JobRoleConsultant  JobRole = "consultant"
)

type ServiceLevel string

const (
	ServiceStandard ServiceLevel = "standard"
	ServicePremium  ServiceLevel = "premium"
)

var validTargetMarkets = map[string]bool{
	"uk":                true,
	"republicOfIreland": true,
	"europe":            true,
	"america":           true,
	"gcc":               true,
	"others":            true,
}

const (
	MaxPreviousExperiences = 10
	minWordsWhenPresent    = 5
	earliestYear           = 1900
)

// WordLimits are the maximum word counts of the free-text CV fields.
var WordLimits = map[string]int{
	"jobDescription":                    750,
	"researchExperience":                1000,
	"teachingExperience":                1000,
	"leadershipManagementExperience":    1000,
	"auditQualityImprovementExperience": 1000,
	"clinicalSkillsProcedureCompetency": 1000,
	"personalStatement":                 2500,
}

type PreviousExperience struct {
	StartDate       time.Time `json:"startDate" bson:"startDate"`
	EndDate         time.Time `json:"endDate" bson:"endDate"`
	HospitalName    string    `json:"hospitalName" bson:"hospitalName"`
	HospitalAddress string    `json:"hospitalAddress" bson:"hospitalAddress"`
	JobTitle        string    `json:"jobTitle" bson:"jobTitle"`
	JobDescription  string    `json:"jobDescription" bson:"jobDescription"`
}

type CV struct {
	ID     string `json:"_id"`
	UserID string `json:"userId"`

	FirstName               string               `json:"firstName"`
	LastName                string               `json:"lastName"`
	YearOfBirth             int                  `json:"yearOfBirth"`
	YearOfMedicalGraduation int                  `json:"yearOfMedicalGraduation"`
	ApplyingForJobRole      JobRole              `json:"applyingForJobRole"`
	TargetMarkets           []string             `json:"targetMarkets"`
	PreviousExperiences     []PreviousExperience `json:"previousExperiences"`

	ResearchExperience                string `json:"researchExperience"`
	TeachingExperience                string `json:"teachingExperience"`
	LeadershipManagementExperience    string `json:"leadershipManagementExperience"`
	AuditQualityImprovementExperience string `json:"auditQualityImprovementExperience"`
	ClinicalSkillsProcedureCompetency string `json:"clinicalSkillsProcedureCompetency"`
	PersonalStatement                 string `json:"personalStatement"`

	ServiceLevel ServiceLevel `json:"serviceLevel"`
	Status       CVStatus     `json:"status"`
	ReviewID     string       `json:"reviewId,omitempty"`
	SubmittedAt  *time.Time   `json:"submittedAt,omitempty"`
	ReviewedAt   *time.Time   `json:"reviewedAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// CVWithOwner is a CV listing entry with its owner's summary.
type CVWithOwner struct {
	*CV
	User *UserSummary `json:"user,omitempty"`
}

type CreateCVRequest struct {
	FirstName                         string               `json:"firstName"`
	LastName                          string               `json:"lastName"`
	YearOfBirth                       int                  `json:"yearOfBirth"`
	YearOfMedicalGraduation           int                  `json:"yearOfMedicalGraduation"`
	ApplyingForJobRole                JobRole              `json:"applyingForJobRole"`
	TargetMarkets                     []string             `json:"targetMarkets"`
	PreviousExperiences               []PreviousExperience `json:"previousExperiences"`
	ResearchExperience                string               `json:"researchExperience"`
	TeachingExperience                string               `json:"teachingExperience"`
	LeadershipManagementExperience    string               `json:"leadershipManagementExperience"`
	AuditQualityImprovementExperience string               `json:"auditQualityImprovementExperience"`
	ClinicalSkillsProcedureCompetency string               `json:"clinicalSkillsProcedureCompetency"`
	PersonalStatement                 string               `json:"personalStatement"`
	ServiceLevel                      ServiceLevel         `json:"serviceLevel"`
}

func (r *CreateCVRequest) Normalize() {
	r.FirstName = utils.NormalizeString(r.FirstName)
	r.LastName = utils.NormalizeString(r.LastName)
	for i := range r.PreviousExperiences {
		e := &r.PreviousExperiences[i]
		e.HospitalName = utils.NormalizeString(e.HospitalName)
		e.HospitalAddress = utils.NormalizeString(e.HospitalAddress)
		e.JobTitle = utils.NormalizeString(e.JobTitle)
		e.JobDescription = utils.NormalizeString(e.JobDescription)
	}
	r.ResearchExperience = utils.NormalizeString(r.ResearchExperience)
	r.TeachingExperience = utils.NormalizeString(r.TeachingExperience)
	r.LeadershipManagementExperience = utils.NormalizeString(r.LeadershipManagementExperience)
	r.AuditQualityImprovementExperience = utils.NormalizeString(r.AuditQualityImprovementExperience)
	r.ClinicalSkillsProcedureCompetency = utils.NormalizeString(r.ClinicalSkillsProcedureCompetency)
	r.PersonalStatement = utils.NormalizeString(r.PersonalStatement)
}

// Validate checks the request against the CV field rules. now bounds the
// year fields.
func (r *CreateCVRequest) Validate(now time.Time) error {
	verr := NewValidationError("CV validation failed")

	checkName(verr, "firstName", "First name", r.FirstName, 60)
	checkName(verr, "lastName", "Last name", r.LastName, 15)
	checkYear(verr, "yearOfBirth", "Year of birth", r.YearOfBirth, now.Year())
	checkYear(verr, "yearOfMedicalGraduation", "Year of medical graduation", r.YearOfMedicalGraduation, now.Year())

	switch r.ApplyingForJobRole {
	case JobRoleTier1, JobRoleMiddleGrade, JobRoleConsultant:
	case "":
		verr.Add("applyingForJobRole", "Job role selection is required")
	default:
		verr.Add("applyingForJobRole", "Job role must be one of: Tier 1, Middle Grade, or Consultant")
	}

	if len(r.TargetMarkets) == 0 {
		verr.Add("targetMarkets", "At least one target market must be selected")
	}
	for _, m := range r.TargetMarkets {
		if !validTargetMarkets[m] {
			verr.Add("targetMarkets", "Invalid target market selection")
		}
	}

	if len(r.PreviousExperiences) > MaxPreviousExperiences {
		verr.Add("previousExperiences", "Maximum allowed is 10 previous jobs. Please combine successive jobs together if you have more than 10.")
	}
	for i, e := range r.PreviousExperiences {
		checkExperience(verr, fmt.Sprintf("previousExperiences[%d]", i), e)
	}

	checkOptionalText(verr, "researchExperience", "Research experience", r.ResearchExperience)
	checkOptionalText(verr, "teachingExperience", "Teaching experience", r.TeachingExperience)
	checkOptionalText(verr, "leadershipManagementExperience", "Leadership & management experience", r.LeadershipManagementExperience)
	checkOptionalText(verr, "auditQualityImprovementExperience", "Audit & quality improvement experience", r.AuditQualityImprovementExperience)
	checkOptionalText(verr, "clinicalSkillsProcedureCompetency", "Clinical skills & procedure competency", r.ClinicalSkillsProcedureCompetency)
	checkOptionalText(verr, "personalStatement", "Personal statement", r.PersonalStatement)

	switch r.ServiceLevel {
	case ServiceStandard, ServicePremium:
	case "":
		verr.Add("serviceLevel", "Service level selection is required")
	default:
		verr.Add("serviceLevel", "Service level must be either Standard Review or Premium Review")
	}

	return verr.OrNil()
}

func checkName(verr *ValidationError, field, label, v string, max int) {
	switch {
	case v == "":
		verr.Add(field, label+" is required")
	case utils.RuneLen(v) > max:
		verr.Add(field, fmt.Sprintf("%s cannot exceed %d characters", label, max))
	case !utils.IsAlpha(v):
		verr.Add(field, label+" must contain only alphabetic characters")
	}
}

func checkYear(verr *ValidationError, field, label string, year, current int) {
	switch {
	case year == 0:
		verr.Add(field, label+" is required")
	case year < earliestYear:
		verr.Add(field, fmt.Sprintf("%s cannot be before %d", label, earliestYear))
	case year > current:
		verr.Add(field, label+" cannot be in the future")
	}
}

func checkLength(verr *ValidationError, field, label, v string, max int) {
	switch {
	case v == "":
		verr.Add(field, label+" is required")
	case utils.RuneLen(v) > max:
		verr.Add(field, fmt.Sprintf("%s cannot exceed %d characters", label, max))
	}
}

func checkExperience(verr *ValidationError, prefix string, e PreviousExperience) {
	if e.StartDate.IsZero() {
		verr.Add(prefix+".startDate", "Start date is required")
	}
	if e.EndDate.IsZero() {
		verr.Add(prefix+".endDate", "End date is required")
	} else if !e.StartDate.IsZero() && e.EndDate.Before(e.StartDate) {
		verr.Add(prefix+".endDate", "End date must be after start date")
	}
	checkLength(verr, prefix+".hospitalName", "Hospital name", e.HospitalName, 100)
	checkLength(verr, prefix+".hospitalAddress", "Hospital address", e.HospitalAddress, 100)
	checkLength(verr, prefix+".jobTitle", "Job title", e.JobTitle, 20)

	field := prefix + ".jobDescription"
	words := utils.WordCount(e.JobDescription)
	switch {
	case e.JobDescription == "":
		verr.Add(field, "Job description is required")
	case words > WordLimits["jobDescription"]:
		verr.Add(field, "Job description cannot exceed 750 words")
	case words < minWordsWhenPresent:
		verr.Add(field, "Job description must contain at least 5 words")
	}
}

func checkOptionalText(verr *ValidationError, field, label, v string) {
	if v == "" {
		return
	}
	words := utils.WordCount(v)
	if max := WordLimits[field]; words > max {
		verr.Add(field, fmt.Sprintf("%s cannot exceed %d words", label, max))
		return
	}
	if words < minWordsWhenPresent {
		verr.Add(field, fmt.Sprintf("%s must contain at least 5 words if provided", label))
	}
}

// NewCV builds a pending CV owned by userID.
func NewCV(userID string, r *CreateCVRequest, now time.Time) *CV {
	submitted := now
	experiences := r.PreviousExperiences
	if experiences == nil {
		experiences = []PreviousExperience{}
	}
	return &CV{
		UserID:                            userID,
		FirstName:                         r.FirstName,
		LastName:                          r.LastName,
		YearOfBirth:                       r.YearOfBirth,
		YearOfMedicalGraduation:           r.YearOfMedicalGraduation,
		ApplyingForJobRole:                r.ApplyingForJobRole,
		TargetMarkets:                     r.TargetMarkets,
		PreviousExperiences:               experiences,
		ResearchExperience:                r.ResearchExperience,
		TeachingExperience:                r.TeachingExperience,
		LeadershipManagementExperience:    r.LeadershipManagementExperience,
		AuditQualityImprovementExperience: r.AuditQualityImprovementExperience,
		ClinicalSkillsProcedureCompetency: r.ClinicalSkillsProcedureCompetency,
		PersonalStatement:                 r.PersonalStatement,
		ServiceLevel:                      r.ServiceLevel,
		Status:                            CVPending,
		SubmittedAt:                       &submitted,
		CreatedAt:                         now,
		UpdatedAt:                         now,
	}
}

func (c *CV) FullName() string {
	return c.FirstName + " " + c.LastName
}

// MarkReviewed moves the CV to reviewed. ReviewedAt is only set once.
func (c *CV) MarkReviewed(reviewID string, now time.Time) {
	c.Status = CVReviewed
	if reviewID != "" {
		c.ReviewID = reviewID
	}
	if c.ReviewedAt == nil {
		t := now
		c.ReviewedAt = &t
	}
	c.UpdatedAt = now
}

func (c *CV) field(name string) string {
	switch name {
	case "researchExperience":
		return c.ResearchExperience
	case "teachingExperience":
		return c.TeachingExperience
	case "leadershipManagementExperience":
		return c.LeadershipManagementExperience
	case "auditQualityImprovementExperience":
		return c.AuditQualityImprovementExperience
	case "clinicalSkillsProcedureCompetency":
		return c.ClinicalSkillsProcedureCompetency
	case "personalStatement":
		return c.PersonalStatement
	}
	return ""
}

func (c *CV) WordCount(field string) int {
	return utils.WordCount(c.field(field))
}

func (c *CV) RemainingWords(field string) int {
	return max(0, WordLimits[field]-c.WordCount(field))
}
