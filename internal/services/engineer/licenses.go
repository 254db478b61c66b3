package engineer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// ErrNotMiningLicense is returned when the requested issue exists but is
// not a mining license in this project.
var ErrNotMiningLicense = errors.New("issue not found or not a valid mining license")

// PendingLicense is one application awaiting a site visit slot.
type PendingLicense struct {
	ID             int    `json:"id"`
	AssignedTo     string `json:"assigned_to"`
	GoogleLocation string `json:"Google_location"`
	MiningNumber   string `json:"mining_number"`
}

// PendingLicenses lists the applications waiting for the engineer to
// schedule a site visit.
func (s *Service) PendingLicenses(ctx context.Context, apiKey string) ([]PendingLicense, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, mlFilter(redmine.StatusAwaiting))
	if err != nil {
		return nil, err
	}
	pending := make([]PendingLicense, 0, len(issues))
	for _, issue := range issues {
		pending = append(pending, PendingLicense{
			ID:             issue.ID,
			AssignedTo:     issue.AssigneeName(),
			GoogleLocation: issue.CustomFields.Get(redmine.NameGoogleLocation),
			MiningNumber:   issue.CustomFields.Get(redmine.NameLicenseNumber),
		})
	}
	return pending, nil
}

// ScheduledLicenses lists the applications whose site visit is booked.
func (s *Service) ScheduledLicenses(ctx context.Context, apiKey string) ([]LicenseReview, error) {
	page, err := s.redmine.ListIssues(ctx, apiKey, mlFilter(redmine.StatusScheduled), 0, 100)
	if err != nil {
		return nil, err
	}
	reviews := make([]LicenseReview, 0, len(page.Issues))
	for _, issue := range page.Issues {
		reviews = append(reviews, s.reviewFromIssue(ctx, apiKey, issue))
	}
	return reviews, nil
}

// ApprovedLicenses lists the applications the engineer has approved.
func (s *Service) ApprovedLicenses(ctx context.Context, apiKey string) ([]LicenseReview, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, mlFilter(redmine.StatusApproved))
	if err != nil {
		return nil, err
	}
	reviews := make([]LicenseReview, 0, len(issues))
	for _, issue := range issues {
		review := s.reviewFromIssue(ctx, apiKey, issue)
		review.MiningLicenseNumber = issue.CustomFields.Get(redmine.NameLicenseNumber)
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// HoldLicenses lists the applications parked on hold, each with the
// recorded reason.
func (s *Service) HoldLicenses(ctx context.Context, apiKey string) ([]LicenseReview, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, mlFilter(redmine.StatusHold))
	if err != nil {
		return nil, err
	}
	reviews := make([]LicenseReview, 0, len(issues))
	for _, issue := range issues {
		review := s.reviewFromIssue(ctx, apiKey, issue)
		review.MiningLicenseNumber = issue.CustomFields.Get(redmine.NameLicenseNumber)
		review.HoldReason = issue.CustomFields.GetByID(redmine.FieldHoldReason)
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// RejectedLicense is one refused application on the engineer dashboard.
type RejectedLicense struct {
	ID             int    `json:"id"`
	Status         string `json:"status"`
	AssignedTo     string `json:"assigned_to"`
	GoogleLocation string `json:"Google_location"`
	MiningNumber   string `json:"mining_number"`
}

// RejectedLicenses scans every application and keeps the refused ones.
// Rejected is a closed status, so it cannot be queried directly.
func (s *Service) RejectedLicenses(ctx context.Context, apiKey string) ([]RejectedLicense, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectSlug: redmine.ProjectSlug,
		TrackerID:   redmine.TrackerMiningLicense,
	})
	if err != nil {
		return nil, err
	}
	var rejected []RejectedLicense
	for _, issue := range issues {
		if issue.Status.ID != redmine.StatusRejected {
			continue
		}
		rejected = append(rejected, RejectedLicense{
			ID:             issue.ID,
			Status:         issue.Status.Name,
			AssignedTo:     issue.AssigneeName(),
			GoogleLocation: issue.CustomFields.Get(redmine.NameGoogleLocation),
			MiningNumber:   issue.CustomFields.Get(redmine.NameLicenseNumber),
		})
	}
	return rejected, nil
}

// SingleLicense fetches one application for review and verifies it really
// is a mining license in this project.
func (s *Service) SingleLicense(ctx context.Context, apiKey string, issueID int) (LicenseReview, error) {
	issue, err := s.redmine.GetIssue(ctx, apiKey, issueID, "")
	if err != nil {
		return LicenseReview{}, err
	}
	if issue.Tracker.ID != redmine.TrackerMiningLicense || issue.Project.ID != redmine.ProjectID {
		return LicenseReview{}, ErrNotMiningLicense
	}
	review := s.reviewFromIssue(ctx, apiKey, *issue)
	review.MiningLicenseNumber = issue.CustomFields.Get(redmine.NameLicenseNumber)
	return review, nil
}

// LicenseDetail is the full application view behind the dashboard's view
// button. Document fields resolve to download URLs.
type LicenseDetail struct {
	ID                          int    `json:"id"`
	Subject                     string `json:"subject"`
	StartDate                   string `json:"start_date"`
	DueDate                     string `json:"due_date"`
	Status                      string `json:"status"`
	AssignedTo                  string `json:"assigned_to"`
	LandName                    string `json:"land_name"`
	LandOwnerName               string `json:"land_owner_name"`
	VillageName                 string `json:"village_name"`
	GoogleLocation              string `json:"google_location"`
	GramaNiladhariDivision      string `json:"grama_niladhari_division"`
	Capacity                    string `json:"capacity"`
	Used                        string `json:"used"`
	Remaining                   string `json:"remaining"`
	ExplorationLicenceNo        string `json:"exploration_licence_no"`
	Royalty                     string `json:"royalty"`
	DivisionalSecretaryDivision string `json:"divisional_secretary_division"`
	AdministrativeDistrict      string `json:"administrative_district"`
	MiningLicenseNumber         string `json:"mining_license_number"`
	MobileNumber                string `json:"mobile_number"`
	EconomicViabilityReport     string `json:"economic_viability_report"`
	LicenseFeeReceipt           string `json:"license_fee_receipt"`
	DetailedMineRestorationPlan string `json:"detailed_mine_restoration_plan"`
	DeedAndSurveyPlan           string `json:"deed_and_survey_plan"`
	PaymentReceipt              string `json:"payment_receipt"`
	LicenseBoundarySurvey       string `json:"license_boundary_survey"`
}

// LicenseView fetches one application with every stored document resolved.
func (s *Service) LicenseView(ctx context.Context, apiKey string, issueID int) (LicenseDetail, error) {
	issue, err := s.redmine.GetIssue(ctx, apiKey, issueID, "attachments")
	if err != nil {
		return LicenseDetail{}, err
	}
	fields := issue.CustomFields
	urls := s.redmine.AttachmentURLs(ctx, apiKey, fields,
		redmine.NameEconomicViability,
		redmine.NameLicenseFeeReceipt,
		redmine.NameRestorationPlan,
		redmine.NameDeedSurveyPlan,
		redmine.NamePaymentReceipt,
		redmine.NameBoundarySurvey,
	)
	return LicenseDetail{
		ID:                          issue.ID,
		Subject:                     issue.Subject,
		StartDate:                   issue.StartDate,
		DueDate:                     issue.DueDate,
		Status:                      issue.Status.Name,
		AssignedTo:                  issue.AssigneeName(),
		LandName:                    fields.Get(redmine.NameLandName),
		LandOwnerName:               fields.Get(redmine.NameLandOwnerName),
		VillageName:                 fields.Get(redmine.NameVillageName),
		GoogleLocation:              fields.Get(redmine.NameGoogleLocation),
		GramaNiladhariDivision:      fields.Get(redmine.NameGramaNiladhari),
		Capacity:                    fields.Get(redmine.NameCapacity),
		Used:                        fields.Get(redmine.NameUsed),
		Remaining:                   fields.Get(redmine.NameRemaining),
		ExplorationLicenceNo:        fields.Get(redmine.NameExplorationNo),
		Royalty:                     fields.Get(redmine.NameRoyalty),
		DivisionalSecretaryDivision: fields.Get(redmine.NameDivisionalSecretary),
		AdministrativeDistrict:      fields.Get(redmine.NameAdminDistrict),
		MiningLicenseNumber:         fields.Get(redmine.NameLicenseNumber),
		MobileNumber:                fields.Get(redmine.NameMobileNumber),
		EconomicViabilityReport:     urls[redmine.NameEconomicViability],
		LicenseFeeReceipt:           urls[redmine.NameLicenseFeeReceipt],
		DetailedMineRestorationPlan: urls[redmine.NameRestorationPlan],
		DeedAndSurveyPlan:           urls[redmine.NameDeedSurveyPlan],
		PaymentReceipt:              urls[redmine.NamePaymentReceipt],
		LicenseBoundarySurvey:       urls[redmine.NameBoundarySurvey],
	}, nil
}

// LicenseStatusCounts tallies applications per review stage. Every stage
// appears in the result even when its count is zero.
func (s *Service) LicenseStatusCounts(ctx context.Context, apiKey string) (map[string]int, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectSlug: redmine.ProjectSlug,
		TrackerID:   redmine.TrackerMiningLicense,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count licenses: %w", err)
	}
	counts := make(map[string]int, len(redmine.MLStatusLabel))
	for _, label := range redmine.MLStatusLabel {
		counts[label] = 0
	}
	for _, issue := range issues {
		if label, ok := redmine.MLStatusLabel[issue.Status.ID]; ok {
			counts[label]++
		}
	}
	return counts, nil
}
