package mlowner

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// ErrLicenseNotFound is returned when no license matches the given number.
var ErrLicenseNotFound = errors.New("no mining license found for the given number")

// LicenseSummary is one row of the owner's license table. The JSON keys are
// what the owner dashboard binds to.
type LicenseSummary struct {
	IssueID             int    `json:"Issue ID,omitempty"`
	LicenseNumber       string `json:"License Number"`
	DivisionalSecretary string `json:"Divisional Secretary Division"`
	OwnerName           string `json:"Owner Name"`
	Location            string `json:"Location"`
	StartDate           string `json:"Start Date"`
	DueDate             string `json:"Due Date"`
	RemainingCubes      int    `json:"Remaining Cubes"`
	Royalty             string `json:"Royalty"`
	Status              string `json:"Status,omitempty"`
}

func (s *Service) summarize(issue redmine.Issue) LicenseSummary {
	fields := issue.CustomFields
	return LicenseSummary{
		LicenseNumber:       orNA(fields.Get(redmine.NameLicenseNumber)),
		DivisionalSecretary: orNA(fields.Get(redmine.NameDivisionalSecretary)),
		OwnerName:           orNA(issue.AssigneeName()),
		Location:            orNA(fields.Get(redmine.NameVillageName)),
		StartDate:           orNA(issue.StartDate),
		DueDate:             orNA(issue.DueDate),
		RemainingCubes:      fields.IntOr(redmine.NameRemaining, 0),
		Royalty:             orNA(fields.Get(redmine.NameRoyalty)),
	}
}

// Licenses lists every issued license assigned to the owner. A license past
// its due date is reported as Expired regardless of its Redmine status.
func (s *Service) Licenses(ctx context.Context, apiKey string, userID int) ([]LicenseSummary, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerMiningLicense,
		StatusID:     strconv.Itoa(redmine.StatusValid),
		AssignedToID: userID,
	})
	if err != nil {
		return nil, err
	}

	y, m, d := s.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	summaries := make([]LicenseSummary, 0, len(issues))
	for _, issue := range issues {
		summary := s.summarize(issue)
		summary.Status = issue.Status.Name
		if issue.DueDate != "" {
			if due, err := time.Parse(dateLayout, issue.DueDate); err == nil && today.After(due) {
				summary.Status = "Expired"
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// HomeLicenses lists the licenses usable for new transport permits: still
// within their validity window and with cubes remaining.
func (s *Service) HomeLicenses(ctx context.Context, apiKey string, userID int) ([]LicenseSummary, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerMiningLicense,
		StatusID:     strconv.Itoa(redmine.StatusValid),
		AssignedToID: userID,
	})
	if err != nil {
		return nil, err
	}

	y, m, d := s.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	var usable []LicenseSummary
	for _, issue := range issues {
		if issue.DueDate == "" {
			continue
		}
		due, err := time.Parse(dateLayout, issue.DueDate)
		if err != nil || !due.After(today) {
			continue
		}
		if issue.CustomFields.IntOr(redmine.NameRemaining, 0) == 0 {
			continue
		}
		summary := s.summarize(issue)
		summary.IssueID = issue.ID
		usable = append(usable, summary)
	}
	return usable, nil
}

// LicenseDetail is the full projection of one mining license.
type LicenseDetail struct {
	ID                          int    `json:"id"`
	Subject                     string `json:"subject"`
	Status                      string `json:"status"`
	Author                      string `json:"author"`
	AssignedTo                  string `json:"assigned_to"`
	StartDate                   string `json:"start_date"`
	DueDate                     string `json:"due_date"`
	CreatedOn                   string `json:"created_on,omitempty"`
	UpdatedOn                   string `json:"updated_on,omitempty"`
	Royalty                     string `json:"royalty"`
	ExplorationLicenceNo        string `json:"exploration_licence_no"`
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
	GoogleLocation              string `json:"google_location"`
	ReasonForHold               string `json:"reason_for_hold"`
	EconomicViabilityReport     string `json:"economic_viability_report"`
	LicenseFeeReceipt           string `json:"license_fee_receipt,omitempty"`
	DetailedMineRestorationPlan string `json:"detailed_mine_restoration_plan"`
	DeedAndSurveyPlan           string `json:"deed_and_survey_plan"`
	PaymentReceipt              string `json:"payment_receipt"`
	LicenseBoundarySurvey       string `json:"license_boundary_survey"`
	MiningLicenseNumber         string `json:"mining_license_number"`
}

func (s *Service) detailFromIssue(issue *redmine.Issue, attachmentURLs map[string]string) LicenseDetail {
	fields := issue.CustomFields
	pick := func(name string) string {
		if attachmentURLs != nil {
			if url := attachmentURLs[name]; url != "" {
				return url
			}
		}
		return fields.Get(name)
	}
	return LicenseDetail{
		ID:                          issue.ID,
		Subject:                     issue.Subject,
		Status:                      issue.Status.Name,
		Author:                      issue.Author.Name,
		AssignedTo:                  issue.AssigneeName(),
		StartDate:                   issue.StartDate,
		DueDate:                     issue.DueDate,
		CreatedOn:                   issue.CreatedOn,
		UpdatedOn:                   issue.UpdatedOn,
		Royalty:                     fields.Get(redmine.NameRoyalty),
		ExplorationLicenceNo:        fields.Get(redmine.NameExplorationNo),
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
		GoogleLocation:              fields.Get(redmine.NameGoogleLocation),
		ReasonForHold:               fields.Get("Reason For Hold"),
		EconomicViabilityReport:     pick(redmine.NameEconomicViability),
		LicenseFeeReceipt:           pick(redmine.NameLicenseFeeReceipt),
		DetailedMineRestorationPlan: pick(redmine.NameRestorationPlan),
		DeedAndSurveyPlan:           pick(redmine.NameDeedSurveyPlan),
		PaymentReceipt:              pick(redmine.NamePaymentReceipt),
		LicenseBoundarySurvey:       pick(redmine.NameBoundarySurvey),
		MiningLicenseNumber:         fields.Get(redmine.NameLicenseNumber),
	}
}

// LicenseDetailByNumber finds the owner's license whose number matches
// (trimmed, case-insensitive) and returns its full projection.
func (s *Service) LicenseDetailByNumber(ctx context.Context, apiKey string, userID int, number string) (*LicenseDetail, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerMiningLicense,
		StatusID:     strconv.Itoa(redmine.StatusValid),
		AssignedToID: userID,
	})
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		if !redmine.EqualLicenseNumbers(issue.CustomFields.GetByID(redmine.FieldLicenseNumber), number) {
			continue
		}
		full, err := s.redmine.GetIssue(ctx, apiKey, issue.ID, "")
		if err != nil {
			return nil, err
		}
		detail := s.detailFromIssue(full, nil)
		return &detail, nil
	}
	return nil, ErrLicenseNotFound
}

// LicenseByID fetches one license with its attachment fields resolved to
// download URLs.
func (s *Service) LicenseByID(ctx context.Context, apiKey string, issueID int) (*LicenseDetail, error) {
	issue, err := s.redmine.GetIssue(ctx, apiKey, issueID, "attachments")
	if err != nil {
		return nil, err
	}
	urls := s.redmine.AttachmentURLs(ctx, apiKey, issue.CustomFields, fileFieldNames...)
	detail := s.detailFromIssue(issue, urls)
	return &detail, nil
}

// RequestSummary is one row of the owner's pending-requests table.
type RequestSummary struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	AssignedTo  string `json:"assigned_to"`
	Mobile      string `json:"mobile"`
	District    string `json:"district"`
	DateCreated string `json:"date_created"`
	Status      string `json:"status"`
}

// LicenseSummaries lists the owner's in-flight license requests (everything
// not yet issued).
func (s *Service) LicenseSummaries(ctx context.Context, apiKey string, userID int) ([]RequestSummary, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
		StatusID:  "!" + strconv.Itoa(redmine.StatusValid),
	})
	if err != nil {
		return nil, err
	}
	summaries := make([]RequestSummary, 0, len(issues))
	for _, issue := range issues {
		if issue.AssigneeID() != userID {
			continue
		}
		summaries = append(summaries, RequestSummary{
			ID:          issue.ID,
			Subject:     issue.Subject,
			AssignedTo:  issue.AssigneeName(),
			Mobile:      issue.CustomFields.Get(redmine.NameMobileNumber),
			District:    issue.CustomFields.Get(redmine.NameAdminDistrict),
			DateCreated: issue.CreatedOn,
			Status:      issue.Status.Name,
		})
	}
	return summaries, nil
}

// PendingSummary tracks one in-flight request, joined with its scheduled
// site visit or meeting when one exists.
type PendingSummary struct {
	MiningLicenseNumber string `json:"mining_license_number"`
	CreatedOn           string `json:"created_on"`
	UpdatedOn           string `json:"updated_on"`
	Status              string `json:"status"`
	StartDate           string `json:"start_date,omitempty"`
	MeetingLocation     string `json:"GSMB_physical_meetinglocation,omitempty"`
}

// PendingLicenseSummaries lists the owner's in-flight requests. Requests with
// a scheduled site visit (or officer meeting) pick up the appointment's start
// date by matching license numbers across trackers.
func (s *Service) PendingLicenseSummaries(ctx context.Context, apiKey string, userID int) ([]PendingSummary, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
		StatusID:  "!" + strconv.Itoa(redmine.StatusValid),
	})
	if err != nil {
		return nil, err
	}

	var summaries []PendingSummary
	for _, issue := range issues {
		if issue.AssigneeID() != userID {
			continue
		}
		number := issue.CustomFields.Get(redmine.NameLicenseNumber)
		summary := PendingSummary{
			MiningLicenseNumber: number,
			CreatedOn:           issue.CreatedOn,
			UpdatedOn:           issue.UpdatedOn,
			Status:              issue.Status.Name,
		}
		if number != "" {
			switch issue.Status.ID {
			case redmine.StatusScheduled:
				s.joinAppointment(ctx, apiKey, redmine.TrackerSiteVisit, number, &summary)
			case redmine.StatusMeetingSet:
				s.joinAppointment(ctx, apiKey, redmine.TrackerMeeting, number, &summary)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// joinAppointment copies the start date (and meeting location for officer
// meetings) from the first appointment whose license number matches. A
// failed appointment lookup leaves the summary as is.
func (s *Service) joinAppointment(ctx context.Context, apiKey string, trackerID int, number string, summary *PendingSummary) {
	appointments, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: trackerID,
	})
	if err != nil {
		s.logger.WithError(err).WithField("tracker", trackerID).Warn("appointment join failed")
		return
	}
	for _, appt := range appointments {
		if appt.CustomFields.Get(redmine.NameLicenseNumber) != number {
			continue
		}
		summary.StartDate = appt.StartDate
		if trackerID == redmine.TrackerMeeting {
			summary.MeetingLocation = appt.CustomFields.Get("GSMB physical meeting location")
		}
		return
	}
}

// UserDetail returns the raw Redmine account the token belongs to.
func (s *Service) UserDetail(ctx context.Context, apiKey string, userID int) (*redmine.User, error) {
	return s.redmine.GetUser(ctx, apiKey, userID)
}

// AddRoyalty adds amount to the license's royalty balance. The read and
// write are separate Redmine calls; concurrent top-ups can race.
func (s *Service) AddRoyalty(ctx context.Context, apiKey string, issueID, amount int) (int, error) {
	issue, err := s.redmine.GetIssue(ctx, apiKey, issueID, "")
	if err != nil {
		return 0, err
	}
	existing := issue.CustomFields.IntOr(redmine.NameRoyalty, 0)
	total := existing + amount
	err = s.redmine.UpdateIssue(ctx, apiKey, issueID, redmine.IssueUpdate{
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldRoyalty, Value: strconv.Itoa(total)},
		},
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
