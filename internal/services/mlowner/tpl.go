package mlowner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

const cubePrice = 500

// CreateTPLRequest is the payload for a new transport permit.
type CreateTPLRequest struct {
	MiningLicenseNumber string `json:"mining_license_number"`
	Cubes               int    `json:"cubes"`
	LorryNumber         string `json:"lorry_number"`
	DriverContact       string `json:"driver_contact"`
	Route01             string `json:"route_01"`
	Route02             string `json:"route_02"`
	Route03             string `json:"route_03"`
	Destination         string `json:"destination"`
	StartDate           string `json:"start_date"`
}

// TPL is a created or listed transport permit.
type TPL struct {
	ID             int     `json:"tpl_id"`
	LicenseNumber  string  `json:"license_number"`
	Subject        string  `json:"subject"`
	Status         string  `json:"status"`
	LorryNumber    string  `json:"lorry_number"`
	DriverContact  string  `json:"driver_contact"`
	Destination    string  `json:"destination"`
	Route01        string  `json:"Route_01"`
	Route02        string  `json:"Route_02"`
	Route03        string  `json:"Route_03"`
	Cubes          string  `json:"cubes"`
	CreateDate     string  `json:"Create_Date"`
	EstimatedHours float64 `json:"Estimated Hours"`
}

// CreateTPL issues a transport permit against a mining license. The cube
// cost (500 per cube) is deducted from the license's royalty balance and its
// Used/Remaining counters move before the permit issue is created; the two
// writes are separate Redmine transactions, so a failure after the deduction
// leaves the balance debited.
func (s *Service) CreateTPL(ctx context.Context, apiKey string, userID int, req CreateTPLRequest) (*TPL, error) {
	if req.MiningLicenseNumber == "" {
		return nil, errors.New("mining license number is required")
	}
	licenseID, err := redmine.ParseLicenseIssueID(req.MiningLicenseNumber)
	if err != nil {
		return nil, errors.New("invalid mining license number format")
	}

	license, err := s.redmine.GetIssue(ctx, apiKey, licenseID, "")
	if err != nil {
		return nil, err
	}
	fields := license.CustomFields
	if !fields.Has(redmine.NameUsed) || !fields.Has(redmine.NameRemaining) || !fields.Has(redmine.NameRoyalty) {
		return nil, errors.New("required fields (Used, Remaining, or Royalty) not found in the mining license issue")
	}

	used := fields.IntOr(redmine.NameUsed, 0)
	remaining := fields.IntOr(redmine.NameRemaining, 0)
	royalty := fields.IntOr(redmine.NameRoyalty, 0)

	cost := req.Cubes * cubePrice
	if royalty < cost {
		return nil, fmt.Errorf("insufficient royalty balance. Required: %d, Available: %d", cost, royalty)
	}
	newRemaining := remaining - req.Cubes
	if newRemaining < 0 {
		return nil, errors.New("insufficient remaining cubes")
	}

	err = s.redmine.UpdateIssue(ctx, apiKey, licenseID, redmine.IssueUpdate{
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldUsed, Value: strconv.Itoa(used + req.Cubes)},
			{ID: redmine.FieldRemaining, Value: strconv.Itoa(newRemaining)},
			{ID: redmine.FieldRoyalty, Value: strconv.Itoa(royalty - cost)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update mining license issue: %w", err)
	}

	hours, err := s.travel.EstimateHours(ctx, req.Route01, req.Destination)
	if err != nil {
		s.logger.WithError(err).Warn("travel estimate failed after balance deduction")
		return nil, err
	}

	startDate := req.StartDate
	if startDate == "" {
		startDate = s.now().Format(dateLayout)
	}
	issue, err := s.redmine.CreateIssue(ctx, apiKey, redmine.NewIssue{
		ProjectID:      redmine.ProjectID,
		TrackerID:      redmine.TrackerTransportLicense,
		StatusID:       redmine.StatusActive,
		PriorityID:     2,
		Subject:        "TPL",
		StartDate:      startDate,
		AssignedToID:   userID,
		EstimatedHours: float64(hours),
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldLorryNumber, Value: req.LorryNumber},
			{ID: redmine.FieldDriverContact, Value: req.DriverContact},
			{ID: redmine.FieldRoute01, Value: req.Route01},
			{ID: redmine.FieldRoute02, Value: req.Route02},
			{ID: redmine.FieldRoute03, Value: req.Route03},
			{ID: redmine.FieldCubes, Value: strconv.Itoa(req.Cubes)},
			{ID: redmine.FieldTPLLicenseNumber, Value: req.MiningLicenseNumber},
			{ID: redmine.FieldDestination, Value: req.Destination},
		},
	})
	if err != nil {
		return nil, err
	}
	return &TPL{
		ID:             issue.ID,
		LicenseNumber:  req.MiningLicenseNumber,
		Subject:        "TPL",
		Status:         "Active",
		LorryNumber:    req.LorryNumber,
		DriverContact:  req.DriverContact,
		Destination:    req.Destination,
		Route01:        req.Route01,
		Route02:        req.Route02,
		Route03:        req.Route03,
		Cubes:          strconv.Itoa(req.Cubes),
		CreateDate:     issue.CreatedOn,
		EstimatedHours: float64(hours),
	}, nil
}

// TransportLicenses lists the owner's permits for one mining license. The
// permit is Active until created_on plus its estimated hours have elapsed,
// Undetermined when either timestamp is unusable.
func (s *Service) TransportLicenses(ctx context.Context, apiKey string, userID int, licenseNumber string) ([]TPL, error) {
	if licenseNumber == "" {
		return nil, errors.New("valid mining license number is required")
	}

	page, err := s.redmine.ListIssues(ctx, apiKey, redmine.Filter{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerTransportLicense,
		AssignedToID: userID,
	}, 0, 100)
	if err != nil {
		return nil, err
	}

	now := s.now()
	permits := make([]TPL, 0, len(page.Issues))
	for _, issue := range page.Issues {
		if issue.CustomFields.GetByID(redmine.FieldTPLLicenseNumber) != licenseNumber {
			continue
		}
		permits = append(permits, TPL{
			ID:             issue.ID,
			LicenseNumber:  licenseNumber,
			Subject:        issue.Subject,
			Status:         tplStatus(issue, now),
			LorryNumber:    issue.CustomFields.Get(redmine.NameLorryNumber),
			DriverContact:  issue.CustomFields.Get(redmine.NameDriverContact),
			Destination:    issue.CustomFields.Get(redmine.NameDestination),
			Route01:        issue.CustomFields.Get(redmine.NameRoute01),
			Route02:        issue.CustomFields.Get(redmine.NameRoute02),
			Route03:        issue.CustomFields.Get(redmine.NameRoute03),
			Cubes:          issue.CustomFields.Get(redmine.NameCubes),
			CreateDate:     issue.CreatedOn,
			EstimatedHours: issue.EstimatedHours,
		})
	}
	return permits, nil
}

func tplStatus(issue redmine.Issue, now time.Time) string {
	created, err := issue.CreatedAt()
	if err != nil || issue.EstimatedHours == 0 {
		return "Undetermined"
	}
	expires := created.Add(time.Duration(issue.EstimatedHours * float64(time.Hour)))
	if now.Before(expires) {
		return "Active"
	}
	return "Expired"
}
