package officer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// TransportPermit is one transport permit row on the officer dashboard.
type TransportPermit struct {
	ID                  int    `json:"id"`
	Subject             string `json:"subject"`
	Status              string `json:"status"`
	Author              string `json:"author"`
	Tracker             string `json:"tracker"`
	AssignedTo          string `json:"assigned_to"`
	StartDate           string `json:"start_date"`
	DueDate             string `json:"due_date"`
	LorryNumber         string `json:"lorry_number"`
	DriverContact       string `json:"driver_contact"`
	Cubes               string `json:"cubes"`
	MiningLicenseNumber string `json:"mining_license_number"`
	Destination         string `json:"destination"`
	LorryDriverName     string `json:"lorry_driver_name"`
}

// TransportPermits lists every transport permit in the project.
func (s *Service) TransportPermits(ctx context.Context, apiKey string) ([]TransportPermit, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerTransportLicense,
	})
	if err != nil {
		return nil, err
	}
	permits := make([]TransportPermit, 0, len(issues))
	for _, issue := range issues {
		fields := issue.CustomFields
		permits = append(permits, TransportPermit{
			ID:                  issue.ID,
			Subject:             issue.Subject,
			Status:              issue.Status.Name,
			Author:              issue.Author.Name,
			Tracker:             issue.Tracker.Name,
			AssignedTo:          issue.AssigneeName(),
			StartDate:           issue.StartDate,
			DueDate:             issue.DueDate,
			LorryNumber:         fields.Get(redmine.NameLorryNumber),
			DriverContact:       fields.Get(redmine.NameDriverContact),
			Cubes:               fields.Get(redmine.NameCubes),
			MiningLicenseNumber: fields.Get(redmine.NameLicenseNumber),
			Destination:         fields.Get(redmine.NameDestination),
			LorryDriverName:     fields.Get("Lorry Driver Name"),
		})
	}
	return permits, nil
}

// License is an issued mining license with its documents resolved.
type License struct {
	ID                          int    `json:"id"`
	Subject                     string `json:"subject"`
	Status                      string `json:"status"`
	Author                      string `json:"author"`
	AssignedTo                  string `json:"assigned_to"`
	StartDate                   string `json:"start_date"`
	DueDate                     string `json:"due_date"`
	ExplorationLicenceNo        string `json:"exploration_licence_no"`
	ApplicantOrCompanyName      string `json:"applicant_or_company_name"`
	LandName                    string `json:"land_name"`
	LandOwnerName               string `json:"land_owner_name"`
	VillageName                 string `json:"village_name"`
	GramaNiladhariDivision      string `json:"grama_niladhari_division"`
	DivisionalSecretaryDivision string `json:"divisional_secretary_division"`
	AdministrativeDistrict      string `json:"administrative_district"`
	Capacity                    string `json:"capacity"`
	Used                        string `json:"used"`
	Remaining                   string `json:"remaining"`
	MobileNumber                string `json:"mobile_number"`
	Royalty                     string `json:"royalty"`
	EconomicViabilityReport     string `json:"economic_viability_report"`
	LicenseFeeReceipt           string `json:"license_fee_receipt"`
	DetailedMineRestorationPlan string `json:"detailed_mine_restoration_plan"`
	Professional                string `json:"professional"`
	DeedAndSurveyPlan           string `json:"deed_and_survey_plan"`
	PaymentReceipt              string `json:"payment_receipt"`
}

// MiningLicenses lists every issued license with attachment fields resolved
// to download URLs.
func (s *Service) MiningLicenses(ctx context.Context, apiKey string) ([]License, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
		StatusID:  strconv.Itoa(redmine.StatusValid),
	})
	if err != nil {
		return nil, err
	}
	licenses := make([]License, 0, len(issues))
	for _, issue := range issues {
		fields := issue.CustomFields
		urls := s.redmine.AttachmentURLs(ctx, apiKey, fields, fileFieldNames...)
		licenses = append(licenses, License{
			ID:                          issue.ID,
			Subject:                     issue.Subject,
			Status:                      issue.Status.Name,
			Author:                      issue.Author.Name,
			AssignedTo:                  issue.AssigneeName(),
			StartDate:                   issue.StartDate,
			DueDate:                     issue.DueDate,
			ExplorationLicenceNo:        fields.Get(redmine.NameExplorationNo),
			ApplicantOrCompanyName:      fields.Get(redmine.NameApplicant),
			LandName:                    fields.Get(redmine.NameLandName),
			LandOwnerName:               fields.Get(redmine.NameLandOwnerName),
			VillageName:                 fields.Get(redmine.NameVillageName),
			GramaNiladhariDivision:      fields.Get(redmine.NameGramaNiladhari),
			DivisionalSecretaryDivision: fields.Get(redmine.NameDivisionalSecretary),
			AdministrativeDistrict:      fields.Get(redmine.NameAdminDistrict),
			Capacity:                    fields.Get(redmine.NameCapacity),
			Used:                        fields.Get(redmine.NameUsed),
			Remaining:                   fields.Get(redmine.NameRemaining),
			MobileNumber:                fields.Get(redmine.NameMobileNumber),
			Royalty:                     fields.Get(redmine.NameRoyalty),
			EconomicViabilityReport:     urls[redmine.NameEconomicViability],
			LicenseFeeReceipt:           urls[redmine.NameLicenseFeeReceipt],
			DetailedMineRestorationPlan: urls[redmine.NameRestorationPlan],
			Professional:                urls["Professional"],
			DeedAndSurveyPlan:           urls[redmine.NameDeedSurveyPlan],
			PaymentReceipt:              urls[redmine.NamePaymentReceipt],
		})
	}
	return licenses, nil
}

// RequestRow is one license application with its assignee expanded.
type RequestRow struct {
	ID                          int              `json:"id"`
	Subject                     string           `json:"subject"`
	Status                      string           `json:"status"`
	AssignedTo                  string           `json:"assigned_to"`
	CreatedOn                   string           `json:"created_on"`
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
	DeedAndSurveyPlan           string           `json:"deed_and_survey_plan"`
	PaymentReceipt              string           `json:"payment_receipt"`
}

// AssigneeDetails is the expanded account an application is assigned to.
type AssigneeDetails struct {
	ID           int                  `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	CustomFields redmine.CustomFields `json:"custom_fields"`
}

// LicenseRequests lists every license application, resolving documents and
// expanding assignees. A failed assignee lookup leaves the details nil
// rather than failing the listing.
func (s *Service) LicenseRequests(ctx context.Context, apiKey string) ([]RequestRow, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
	})
	if err != nil {
		return nil, err
	}
	rows := make([]RequestRow, 0, len(issues))
	for _, issue := range issues {
		fields := issue.CustomFields
		urls := s.redmine.AttachmentURLs(ctx, apiKey, fields,
			redmine.NameRestorationPlan, redmine.NameDeedSurveyPlan, redmine.NamePaymentReceipt)

		row := RequestRow{
			ID:                          issue.ID,
			Subject:                     issue.Subject,
			Status:                      issue.Status.Name,
			AssignedTo:                  issue.AssigneeName(),
			CreatedOn:                   issue.CreatedOn,
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
			DeedAndSurveyPlan:           urls[redmine.NameDeedSurveyPlan],
			PaymentReceipt:              urls[redmine.NamePaymentReceipt],
		}
		if id := issue.AssigneeID(); id != 0 {
			if user, err := s.redmine.GetUser(ctx, apiKey, id); err == nil {
				row.AssignedToDetails = &AssigneeDetails{
					ID:           user.ID,
					Name:         user.FullName(),
					Email:        user.Mail,
					CustomFields: user.CustomFields,
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UploadLicenseRequest carries everything needed to record an issued
// license directly. Document fields hold upload ids from UploadFile.
type UploadLicenseRequest struct {
	Subject                     string `json:"subject"`
	StartDate                   string `json:"start_date"`
	DueDate                     string `json:"due_date"`
	AssigneeID                  int    `json:"assignee_id"`
	Author                      string `json:"author"`
	ExplorationLicenceNo        string `json:"exploration_licence_no"`
	LandName                    string `json:"land_name"`
	LandOwnerName               string `json:"land_owner_name"`
	VillageName                 string `json:"village_name"`
	GramaNiladhariDivision      string `json:"grama_niladhari_division"`
	DivisionalSecretaryDivision string `json:"divisional_secretary_division"`
	AdministrativeDistrict      string `json:"administrative_district"`
	MobileNumber                string `json:"mobile_number"`
	Royalty                     string `json:"royalty"`
	Capacity                    string `json:"capacity"`
	Used                        string `json:"used"`
	Remaining                   string `json:"remaining"`
	GoogleLocation              string `json:"google_location"`
	MonthCapacity               string `json:"month_capacity"`
	EconomicViabilityReport     string `json:"economic_viability_report"`
	DetailedMineRestorationPlan string `json:"detailed_mine_restoration_plan"`
	DeedAndSurveyPlan           string `json:"deed_and_survey_plan"`
	PaymentReceipt              string `json:"payment_receipt"`
}

// UploadLicense records an already-approved license as issued (status
// Valid) and stamps its canonical number in a second write.
func (s *Service) UploadLicense(ctx context.Context, apiKey string, req UploadLicenseRequest) (int, error) {
	author := req.Author
	if author == "" {
		author = "GSMB Officer"
	}
	fields := []redmine.FieldValue{
		{ID: redmine.FieldExplorationNo, Value: req.ExplorationLicenceNo},
		{ID: redmine.FieldLandName, Value: req.LandName},
		{ID: redmine.FieldVillageName, Value: req.VillageName},
		{ID: redmine.FieldGramaNiladhari, Value: req.GramaNiladhariDivision},
		{ID: redmine.FieldDivisionalSecretary, Value: req.DivisionalSecretaryDivision},
		{ID: redmine.FieldAdminDistrict, Value: req.AdministrativeDistrict},
		{ID: redmine.FieldMobileNumber, Value: req.MobileNumber},
		{ID: redmine.FieldLandOwnerName, Value: req.LandOwnerName},
		{ID: redmine.FieldRoyalty, Value: req.Royalty},
		{ID: redmine.FieldCapacity, Value: req.Capacity},
		{ID: redmine.FieldUsed, Value: req.Used},
		{ID: redmine.FieldRemaining, Value: req.Remaining},
		{ID: redmine.FieldGoogleLocation, Value: req.GoogleLocation},
		{ID: redmine.FieldMonthCapacity, Value: req.MonthCapacity},
	}
	uploads := map[int]string{
		redmine.FieldEconomicViability: req.EconomicViabilityReport,
		redmine.FieldRestorationPlan:   req.DetailedMineRestorationPlan,
		redmine.FieldDeedSurveyPlan:    req.DeedAndSurveyPlan,
		redmine.FieldPaymentReceipt:    req.PaymentReceipt,
	}
	for id, value := range uploads {
		if value != "" {
			fields = append(fields, redmine.FieldValue{ID: id, Value: value})
		}
	}

	issue, err := s.redmine.CreateIssue(ctx, apiKey, redmine.NewIssue{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerMiningLicense,
		StatusID:     redmine.StatusValid,
		Subject:      req.Subject,
		Description:  fmt.Sprintf("Mining license submitted by %s", author),
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		AssignedToID: req.AssigneeID,
		CustomFields: fields,
	})
	if err != nil {
		return 0, err
	}

	err = s.redmine.UpdateIssue(ctx, apiKey, issue.ID, redmine.IssueUpdate{
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldLicenseNumber, Value: redmine.FormatLicenseNumber(issue.ID)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update mining license number: %w", err)
	}
	return issue.ID, nil
}
