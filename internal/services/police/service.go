// Package police implements the police officer operations: roadside
// verification of transport permits by lorry number and filing complaints
// against unlicensed transport.
package police

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// ErrNoValidPermit is returned when no unexpired transport permit carries
// the checked lorry number.
var ErrNoValidPermit = errors.New("no valid (non-expired) TPL with this lorry number")

// complaintAssigneeID is the GSMB account every complaint is routed to.
const complaintAssigneeID = 8

// Service exposes the police officer operations.
type Service struct {
	redmine *redmine.Client
	logger  *logrus.Logger
	now     func() time.Time
}

// New wires the service to its Redmine client.
func New(client *redmine.Client, logger *logrus.Logger) *Service {
	return &Service{redmine: client, logger: logger, now: time.Now}
}

// colombo renders validity deadlines in Sri Lanka local time.
var colombo = time.FixedZone("Asia/Colombo", 5*3600+30*60)

// PermitCheck is the roadside verification result for one lorry. The
// license fields are filled when the permit's mining license resolves.
type PermitCheck struct {
	LicenseNumber      string `json:"LicenseNumber"`
	Cubes              string `json:"Cubes"`
	Destination        string `json:"Destination"`
	ValidUntil         string `json:"ValidUntil"`
	Route01            string `json:"Route_01"`
	Route02            string `json:"Route_02"`
	Route03            string `json:"Route_03"`
	IsValid            bool   `json:"IsValid"`
	Assignee           string `json:"Assignee"`
	Owner              string `json:"owner,omitempty"`
	LicenseStartDate   string `json:"License Start Date,omitempty"`
	LicenseEndDate     string `json:"License End Date,omitempty"`
	OwnerContactNumber string `json:"License Owner Contact Number,omitempty"`
	GramaNiladhari     string `json:"Grama Niladhari Division,omitempty"`
}

// CheckLorryNumber finds the unexpired transport permit carrying the given
// lorry number and joins in the mining license it draws from. The license
// join is best effort; a permit with no resolvable license still verifies.
func (s *Service) CheckLorryNumber(ctx context.Context, apiKey, lorryNumber string) (PermitCheck, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		TrackerID: redmine.TrackerTransportLicense,
	})
	if err != nil {
		return PermitCheck{}, err
	}

	now := s.now().UTC()
	for _, issue := range issues {
		plate := issue.CustomFields.GetByID(redmine.FieldLorryNumber)
		if plate == "" || !strings.EqualFold(plate, lorryNumber) {
			continue
		}
		created, err := issue.CreatedAt()
		if err != nil {
			s.logger.WithError(err).WithField("issue_id", issue.ID).Warn("skipping permit with unparsable timestamp")
			continue
		}
		expiresAt := created.Add(time.Duration(issue.EstimatedHours * float64(time.Hour)))
		check := PermitCheck{
			LicenseNumber: issue.CustomFields.GetByID(redmine.FieldTPLLicenseNumber),
			Cubes:         issue.CustomFields.GetByID(redmine.FieldCubes),
			Destination:   issue.CustomFields.GetByID(redmine.FieldDestination),
			ValidUntil:    expiresAt.In(colombo).Format("Monday, January 02, 2006 at 03:04 PM"),
			Route01:       issue.CustomFields.GetByID(redmine.FieldRoute01),
			Route02:       issue.CustomFields.GetByID(redmine.FieldRoute02),
			Route03:       issue.CustomFields.GetByID(redmine.FieldRoute03),
			IsValid:       now.Before(expiresAt),
			Assignee:      issue.AssigneeName(),
		}
		if check.LicenseNumber != "" {
			s.joinLicense(ctx, apiKey, &check)
		}
		return check, nil
	}
	return PermitCheck{}, ErrNoValidPermit
}

func (s *Service) joinLicense(ctx context.Context, apiKey string, check *PermitCheck) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		TrackerID: redmine.TrackerMiningLicense,
		StatusID:  "*",
	})
	if err != nil {
		s.logger.WithError(err).Warn("mining license join failed")
		return
	}
	for _, issue := range issues {
		if issue.CustomFields.GetByID(redmine.FieldLicenseNumber) != check.LicenseNumber {
			continue
		}
		check.Owner = issue.AssigneeName()
		check.LicenseStartDate = issue.StartDate
		check.LicenseEndDate = issue.DueDate
		check.OwnerContactNumber = issue.CustomFields.GetByID(redmine.FieldMobileNumber)
		check.GramaNiladhari = issue.CustomFields.GetByID(redmine.FieldGramaNiladhari)
		return
	}
}

// CreateComplaint files a complaint against a vehicle. The reporting
// officer's phone number is read from their account; a missing number is
// recorded as "N/A" rather than blocking the complaint.
func (s *Service) CreateComplaint(ctx context.Context, apiKey string, userID int, vehicleNumber string) (int, error) {
	phone := s.reporterPhone(ctx, userID)
	issue, err := s.redmine.CreateIssue(ctx, apiKey, redmine.NewIssue{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerComplaint,
		StatusID:     redmine.StatusNew,
		PriorityID:   2,
		AssignedToID: complaintAssigneeID,
		Subject:      "New Complaint",
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldMobileNumber, Value: phone},
			{ID: redmine.FieldLorryNumber, Value: vehicleNumber},
			{ID: redmine.FieldComplainantRole, Value: "PoliceOfficer"},
		},
	})
	if err != nil {
		return 0, err
	}
	return issue.ID, nil
}

func (s *Service) reporterPhone(ctx context.Context, userID int) string {
	user, err := s.redmine.GetUser(ctx, s.redmine.AdminKey(), userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("reporter phone lookup failed")
		return "N/A"
	}
	if phone := user.CustomFields.Get(redmine.NamePhone); phone != "" {
		return phone
	}
	return "N/A"
}
