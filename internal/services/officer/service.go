// Package officer implements the GSMB officer operations: oversight of all
// licenses, permits and complaints, issuing licenses directly, and meeting
// appointments with owners.
package officer

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// Service exposes the GSMB officer operations.
type Service struct {
	redmine *redmine.Client
	logger  *logrus.Logger
}

// New wires the service to its Redmine client.
func New(client *redmine.Client, logger *logrus.Logger) *Service {
	return &Service{redmine: client, logger: logger}
}

var fileFieldNames = []string{
	redmine.NameEconomicViability,
	redmine.NameLicenseFeeReceipt,
	redmine.NameRestorationPlan,
	"Professional",
	redmine.NameDeedSurveyPlan,
	redmine.NamePaymentReceipt,
}

// MLOwner is one mining owner row on the officer dashboard.
type MLOwner struct {
	ID            int    `json:"id"`
	OwnerName     string `json:"ownerName"`
	NIC           string `json:"NIC"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	TotalLicenses int    `json:"totalLicenses"`
}

// MLOwners lists the project members holding the MLOwner role, joined with
// their active accounts and per-owner license counts. Memberships are read
// with the officer's key; account details need the admin key.
func (s *Service) MLOwners(ctx context.Context, apiKey string) ([]MLOwner, error) {
	memberships, err := s.redmine.ListMemberships(ctx, apiKey, redmine.ProjectSlug)
	if err != nil {
		return nil, err
	}
	ownerIDs := redmine.UsersWithRole(memberships, "MLOwner")
	if len(ownerIDs) == 0 {
		return []MLOwner{}, nil
	}

	users, err := s.redmine.ListUsers(ctx, s.redmine.AdminKey(), redmine.UserFilter{Status: redmine.UserStatusActive})
	if err != nil {
		return nil, err
	}
	counts, err := s.LicenseCounts(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	isOwner := make(map[int]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		isOwner[id] = true
	}
	var owners []MLOwner
	for _, user := range users {
		if !isOwner[user.ID] {
			continue
		}
		name := user.FullName()
		owners = append(owners, MLOwner{
			ID:            user.ID,
			OwnerName:     name,
			NIC:           user.CustomFields.Get(redmine.NameNIC),
			Email:         user.Mail,
			PhoneNumber:   user.CustomFields.Get(redmine.NameMobileNumber),
			TotalLicenses: counts[name],
		})
	}
	return owners, nil
}

// MLOwnerOptions lists owner id/name/NIC tuples for assignment dropdowns.
func (s *Service) MLOwnerOptions(ctx context.Context, apiKey string) ([]MLOwner, error) {
	memberships, err := s.redmine.ListMemberships(ctx, apiKey, redmine.ProjectSlug)
	if err != nil {
		return nil, err
	}
	ownerIDs := redmine.UsersWithRole(memberships, "MLOwner")
	if len(ownerIDs) == 0 {
		return []MLOwner{}, nil
	}
	users, err := s.redmine.ListUsers(ctx, s.redmine.AdminKey(), redmine.UserFilter{Status: redmine.UserStatusActive})
	if err != nil {
		return nil, err
	}
	isOwner := make(map[int]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		isOwner[id] = true
	}
	var owners []MLOwner
	for _, user := range users {
		if !isOwner[user.ID] {
			continue
		}
		owners = append(owners, MLOwner{
			ID:        user.ID,
			OwnerName: user.FullName(),
			NIC:       user.CustomFields.Get(redmine.NameNIC),
		})
	}
	return owners, nil
}

// LicenseCounts tallies issued licenses per assignee display name.
// Unassigned licenses count under "Unassigned".
func (s *Service) LicenseCounts(ctx context.Context, apiKey string) (map[string]int, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, issue := range issues {
		name := issue.AssigneeName()
		if name == "" {
			name = "Unassigned"
		}
		counts[name]++
	}
	return counts, nil
}

// Complaint is one complaint row with its timestamp reformatted for display.
type Complaint struct {
	ID            int    `json:"id"`
	LorryNumber   string `json:"lorry_number"`
	MobileNumber  string `json:"mobile_number"`
	ComplaintDate string `json:"complaint_date"`
}

// Complaints lists every complaint. The creation timestamp is rendered as
// "2006-01-02 15:04:05"; an unparsable timestamp passes through untouched.
func (s *Service) Complaints(ctx context.Context, apiKey string) ([]Complaint, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerComplaint,
	})
	if err != nil {
		return nil, err
	}
	complaints := make([]Complaint, 0, len(issues))
	for _, issue := range issues {
		date := issue.CreatedOn
		if created, err := issue.CreatedAt(); err == nil {
			date = created.Format("2006-01-02 15:04:05")
		}
		complaints = append(complaints, Complaint{
			ID:            issue.ID,
			LorryNumber:   issue.CustomFields.Get(redmine.NameLorryNumber),
			MobileNumber:  issue.CustomFields.Get(redmine.NameMobileNumber),
			ComplaintDate: date,
		})
	}
	return complaints, nil
}

// UploadFile streams a document to Redmine with the admin key and returns
// the upload id Redmine assigned, to be stored in an attachment field.
func (s *Service) UploadFile(ctx context.Context, filename string, content io.Reader) (int, error) {
	upload, err := s.redmine.UploadFile(ctx, s.redmine.AdminKey(), filename, content)
	if err != nil {
		return 0, err
	}
	return upload.ID, nil
}

// ChangeStatus moves any issue to a new workflow status.
func (s *Service) ChangeStatus(ctx context.Context, apiKey string, issueID, statusID int) error {
	return s.redmine.UpdateIssue(ctx, apiKey, issueID, redmine.IssueUpdate{StatusID: statusID})
}
