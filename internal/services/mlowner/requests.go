package mlowner

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// LicenseRequest is the payload for a new mining license application.
type LicenseRequest struct {
	Subject                     string `json:"subject"`
	Description                 string `json:"description"`
	AssignedToID                int    `json:"assigned_to"`
	ExplorationLicenceNo        string `json:"exploration_nb"`
	LandName                    string `json:"land_name"`
	LandOwnerName               string `json:"land_owner_name"`
	VillageName                 string `json:"village_name"`
	GramaNiladhari              string `json:"grama_niladari"`
	DivisionalSecretaryDivision string `json:"divisional_secretary_division"`
	AdministrativeDistrict      string `json:"administrative_district"`
	GoogleLocation              string `json:"google_location"`
}

// CreatedRequest is the result of a submitted application.
type CreatedRequest struct {
	ID                  int    `json:"id"`
	Subject             string `json:"subject"`
	MiningLicenseNumber string `json:"mining_license_number"`
}

// RequestLicense submits a mining license application and labels it with its
// canonical number. The label is written in a second call after Redmine
// assigns the issue id; the stored label carries the request prefix while
// the returned number does not.
func (s *Service) RequestLicense(ctx context.Context, apiKey string, userID int, mobile string, req LicenseRequest) (*CreatedRequest, error) {
	subject := req.Subject
	if subject == "" {
		subject = "ML Request"
	}
	assignee := req.AssignedToID
	if assignee == 0 {
		assignee = userID
	}
	issue, err := s.redmine.CreateIssue(ctx, apiKey, redmine.NewIssue{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerMiningLicense,
		StatusID:     redmine.StatusActive,
		PriorityID:   2,
		AssignedToID: assignee,
		AuthorID:     userID,
		Subject:      subject,
		Description:  req.Description,
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldExplorationNo, Value: req.ExplorationLicenceNo},
			{ID: redmine.FieldLandName, Value: req.LandName},
			{ID: redmine.FieldLandOwnerName, Value: req.LandOwnerName},
			{ID: redmine.FieldVillageName, Value: req.VillageName},
			{ID: redmine.FieldGramaNiladhari, Value: req.GramaNiladhari},
			{ID: redmine.FieldDivisionalSecretary, Value: req.DivisionalSecretaryDivision},
			{ID: redmine.FieldAdminDistrict, Value: req.AdministrativeDistrict},
			{ID: redmine.FieldGoogleLocation, Value: req.GoogleLocation},
			{ID: redmine.FieldMobileNumber, Value: mobile},
		},
	})
	if err != nil {
		return nil, err
	}

	err = s.redmine.UpdateIssue(ctx, apiKey, issue.ID, redmine.IssueUpdate{
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldLicenseNumber, Value: redmine.FormatRequestRef(issue.ID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update mining license number: %w", err)
	}

	return &CreatedRequest{
		ID:                  issue.ID,
		Subject:             subject,
		MiningLicenseNumber: redmine.FormatLicenseNumber(issue.ID),
	}, nil
}

// RequestDetail is one of the owner's applications with its attachment
// fields resolved and the assignee expanded.
type RequestDetail struct {
	ID                          int              `json:"id"`
	Subject                     string           `json:"subject"`
	Status                      string           `json:"status"`
	AssignedTo                  string           `json:"assigned_to"`
	CreatedOn                   string           `json:"created_on"`
	UpdatedOn                   string           `json:"updated_on"`
	AssignedToDetails           *AssigneeDetails `json:"assigned_to_details"`
	ExplorationLicenceNo        string           `json:"exploration_licence_no"`
	LandName                    string           `json:"land_name"`
	LandOwnerName               string           `json:"land_owner_name"`
	VillageName                 string           `json:"village_name"`
	GramaNiladhariDivision      string           `json:"grama_niladhari_division"`
	DivisionalSecretaryDivision string           `json:"divisional_secretary_division"`
	AdministrativeDistrict      string           `json:"administrative_district"`
	GoogleLocation              string           `json:"google_location"`
	MobileNumber                string           `json:"mobile_number"`
	DetailedMineRestorationPlan string           `json:"detailed_mine_restoration_plan"`
	EconomicViabilityReport     string           `json:"economic_viability_report"`
	LicenseBoundarySurvey       string           `json:"license_boundary_survey"`
	DeedAndSurveyPlan           string           `json:"deed_and_survey_plan"`
	PaymentReceipt              string           `json:"payment_receipt"`
}

// AssigneeDetails is the expanded account a request is assigned to.
type AssigneeDetails struct {
	ID           int                  `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	CustomFields redmine.CustomFields `json:"custom_fields"`
}

// LicenseRequests lists the owner's applications with attachments resolved.
func (s *Service) LicenseRequests(ctx context.Context, apiKey string, userID int) ([]RequestDetail, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
		StatusID:  "!" + strconv.Itoa(redmine.StatusValid),
	})
	if err != nil {
		return nil, err
	}

	details := make([]RequestDetail, 0, len(issues))
	for _, issue := range issues {
		if issue.AssigneeID() != userID {
			continue
		}
		fields := issue.CustomFields
		urls := s.redmine.AttachmentURLs(ctx, apiKey, fields,
			redmine.NameRestorationPlan,
			redmine.NameEconomicViability,
			redmine.NameBoundarySurvey,
			redmine.NameDeedSurveyPlan,
			redmine.NamePaymentReceipt,
		)

		detail := RequestDetail{
			ID:                          issue.ID,
			Subject:                     issue.Subject,
			Status:                      issue.Status.Name,
			AssignedTo:                  issue.AssigneeName(),
			CreatedOn:                   issue.CreatedOn,
			UpdatedOn:                   issue.UpdatedOn,
			ExplorationLicenceNo:        fields.Get(redmine.NameExplorationNo),
			LandName:                    fields.Get(redmine.NameLandName),
			LandOwnerName:               fields.Get(redmine.NameLandOwnerName),
			VillageName:                 fields.Get(redmine.NameVillageName),
			GramaNiladhariDivision:      fields.Get(redmine.NameGramaNiladhari),
			DivisionalSecretaryDivision: fields.Get(redmine.NameDivisionalSecretary),
			AdministrativeDistrict:      fields.Get(redmine.NameAdminDistrict),
			GoogleLocation:              fields.Get(redmine.NameGoogleLocation),
			MobileNumber:                fields.Get(redmine.NameMobileNumber),
			DetailedMineRestorationPlan: urls[redmine.NameRestorationPlan],
			EconomicViabilityReport:     urls[redmine.NameEconomicViability],
			LicenseBoundarySurvey:       urls[redmine.NameBoundarySurvey],
			DeedAndSurveyPlan:           urls[redmine.NameDeedSurveyPlan],
			PaymentReceipt:              urls[redmine.NamePaymentReceipt],
		}
		if id := issue.AssigneeID(); id != 0 {
			if user, err := s.redmine.GetUser(ctx, apiKey, id); err == nil {
				detail.AssignedToDetails = &AssigneeDetails{
					ID:           user.ID,
					Name:         user.FullName(),
					Email:        user.Mail,
					CustomFields: user.CustomFields,
				}
			}
		}
		details = append(details, detail)
	}
	return details, nil
}
