// Package engineer implements the mining engineer operations: reviewing
// license applications, scheduling site visits, and recording approve,
// reject and hold decisions.
package engineer

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// Service exposes the mining engineer operations.
type Service struct {
	redmine *redmine.Client
	logger  *logrus.Logger
}

// New wires the service to its Redmine client.
func New(client *redmine.Client, logger *logrus.Logger) *Service {
	return &Service{redmine: client, logger: logger}
}

var reviewFileFieldNames = []string{
	redmine.NameRestorationPlan,
	redmine.NamePaymentReceipt,
	redmine.NameDeedSurveyPlan,
}

// LicenseReview is the application detail a mining engineer reviews
// before deciding. Document fields carry download URLs when the stored
// attachment resolves, the raw field value otherwise.
type LicenseReview struct {
	ID                          int    `json:"id"`
	Subject                     string `json:"subject"`
	Status                      string `json:"status"`
	AssignedTo                  string `json:"assigned_to"`
	ExplorationLicenseNo        string `json:"exploration_license_no"`
	LandName                    string `json:"Land_Name"`
	LandOwnerName               string `json:"Land_owner_name"`
	VillageName                 string `json:"Name_of_village"`
	GramaNiladhari              string `json:"Grama_Niladhari"`
	DivisionalSecretaryDivision string `json:"Divisional_Secretary_Division"`
	AdministrativeDistrict      string `json:"administrative_district"`
	Capacity                    string `json:"Capacity"`
	MobileNumber                string `json:"Mobile_Number"`
	GoogleLocation              string `json:"Google_location"`
	RestorationPlan             string `json:"Detailed_Plan"`
	PaymentReceipt              string `json:"Payment_Receipt"`
	DeedPlan                    string `json:"Deed_Plan"`
	MiningLicenseNumber         string `json:"mining_license_number,omitempty"`
	HoldReason                  string `json:"hold,omitempty"`
}

func (s *Service) reviewFromIssue(ctx context.Context, apiKey string, issue redmine.Issue) LicenseReview {
	fields := issue.CustomFields
	urls := s.redmine.AttachmentURLs(ctx, apiKey, fields, reviewFileFieldNames...)
	pick := func(name string) string {
		if url := urls[name]; url != "" {
			return url
		}
		return fields.Get(name)
	}
	return LicenseReview{
		ID:                          issue.ID,
		Subject:                     issue.Subject,
		Status:                      issue.Status.Name,
		AssignedTo:                  issue.AssigneeName(),
		ExplorationLicenseNo:        fields.Get(redmine.NameExplorationNo),
		LandName:                    fields.Get(redmine.NameLandName),
		LandOwnerName:               fields.Get(redmine.NameLandOwnerName),
		VillageName:                 fields.Get(redmine.NameVillageName),
		GramaNiladhari:              fields.Get(redmine.NameGramaNiladhari),
		DivisionalSecretaryDivision: fields.Get(redmine.NameDivisionalSecretary),
		AdministrativeDistrict:      fields.Get(redmine.NameAdminDistrict),
		Capacity:                    fields.Get(redmine.NameCapacity),
		MobileNumber:                fields.Get(redmine.NameMobileNumber),
		GoogleLocation:              fields.Get(redmine.NameGoogleLocation),
		RestorationPlan:             pick(redmine.NameRestorationPlan),
		PaymentReceipt:              pick(redmine.NamePaymentReceipt),
		DeedPlan:                    pick(redmine.NameDeedSurveyPlan),
	}
}

func mlFilter(statusID int) redmine.Filter {
	return redmine.Filter{
		ProjectSlug: redmine.ProjectSlug,
		TrackerID:   redmine.TrackerMiningLicense,
		StatusID:    strconv.Itoa(statusID),
	}
}
