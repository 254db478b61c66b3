package engineer

import (
	"context"
	"fmt"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// ApproveRequest carries the engineer's approval decision for one
// application.
type ApproveRequest struct {
	StatusID      int    `json:"status_id"`
	StartDate     string `json:"start_date"`
	DueDate       string `json:"due_date"`
	Capacity      string `json:"Capacity"`
	MonthCapacity string `json:"month_capacity"`
	Comment       string `json:"me_comment"`
	Report        string `json:"me_report"`
	Remaining     string `json:"Remaining"`
	Used          string `json:"Used"`
	Royalty       string `json:"royalty"`
}

// Approve marks the application approved with the engineer's findings,
// then closes the associated site visit.
func (s *Service) Approve(ctx context.Context, apiKey string, licenseID, siteVisitID int, req ApproveRequest) error {
	statusID := req.StatusID
	if statusID == 0 {
		statusID = redmine.StatusApproved
	}
	err := s.redmine.UpdateIssue(ctx, apiKey, licenseID, redmine.IssueUpdate{
		StatusID:  statusID,
		StartDate: req.StartDate,
		DueDate:   req.DueDate,
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldCapacity, Value: req.Capacity},
			{ID: redmine.FieldMonthCapacity, Value: req.MonthCapacity},
			{ID: redmine.FieldMEComment, Value: req.Comment},
			{ID: redmine.FieldMEReport, Value: req.Report},
			{ID: redmine.FieldRemaining, Value: req.Remaining},
			{ID: redmine.FieldUsed, Value: req.Used},
			{ID: redmine.FieldRoyalty, Value: req.Royalty},
		},
	})
	if err != nil {
		return err
	}
	return s.closeSiteVisit(ctx, apiKey, siteVisitID)
}

// RejectRequest carries the engineer's refusal of one application.
type RejectRequest struct {
	StatusID int    `json:"status_id"`
	Comment  string `json:"me_comment"`
	Report   string `json:"me_report"`
}

// Reject marks the application rejected with the engineer's final comment
// and report, then closes the associated site visit.
func (s *Service) Reject(ctx context.Context, apiKey string, licenseID, siteVisitID int, req RejectRequest) error {
	statusID := req.StatusID
	if statusID == 0 {
		statusID = redmine.StatusRejected
	}
	err := s.redmine.UpdateIssue(ctx, apiKey, licenseID, redmine.IssueUpdate{
		StatusID: statusID,
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldMECommentFinal, Value: req.Comment},
			{ID: redmine.FieldMEReportFinal, Value: req.Report},
		},
	})
	if err != nil {
		return err
	}
	return s.closeSiteVisit(ctx, apiKey, siteVisitID)
}

// Hold parks the application with a reason, then finds its site visit by
// the stored request reference and closes it.
func (s *Service) Hold(ctx context.Context, apiKey string, licenseID int, reason string) error {
	err := s.redmine.UpdateIssue(ctx, apiKey, licenseID, redmine.IssueUpdate{
		StatusID: redmine.StatusHold,
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldHoldReason, Value: reason},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update license issue: %w", err)
	}

	ref := redmine.FormatRequestRef(licenseID)
	page, err := s.redmine.ListIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerSiteVisit,
		StatusID:  "*",
		Fields:    map[int]string{redmine.FieldLicenseNumber: ref},
	}, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to search site visits: %w", err)
	}
	if len(page.Issues) == 0 {
		return fmt.Errorf("no site visit found for license %s", ref)
	}
	return s.closeSiteVisit(ctx, apiKey, page.Issues[0].ID)
}

func (s *Service) closeSiteVisit(ctx context.Context, apiKey string, siteVisitID int) error {
	err := s.redmine.UpdateIssue(ctx, apiKey, siteVisitID, redmine.IssueUpdate{StatusID: redmine.StatusClosed})
	if err != nil {
		return fmt.Errorf("failed to close site visit: %w", err)
	}
	return nil
}

// SiteVisit is one scheduled site visit on the engineer calendar.
type SiteVisit struct {
	ID             int    `json:"id"`
	Subject        string `json:"subject"`
	StartDate      string `json:"start_date"`
	Status         string `json:"status"`
	AssignedTo     string `json:"assigned_to"`
	GoogleLocation string `json:"Google_location"`
	MiningNumber   string `json:"mining_number"`
}

// SiteVisits lists the engineer's open site visits.
func (s *Service) SiteVisits(ctx context.Context, apiKey string) ([]SiteVisit, error) {
	page, err := s.redmine.ListIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerSiteVisit,
		StatusID:  "open",
	}, 0, 100)
	if err != nil {
		return nil, err
	}
	visits := make([]SiteVisit, 0, len(page.Issues))
	for _, issue := range page.Issues {
		visits = append(visits, SiteVisit{
			ID:             issue.ID,
			Subject:        issue.Subject,
			StartDate:      issue.StartDate,
			Status:         issue.Status.Name,
			AssignedTo:     issue.AssigneeName(),
			GoogleLocation: issue.CustomFields.GetByID(redmine.FieldGoogleLocation),
			MiningNumber:   issue.CustomFields.GetByID(redmine.FieldLicenseNumber),
		})
	}
	return visits, nil
}

// ScheduleVisit books a site visit for the given license number and moves
// the application to the scheduled stage. A failure on that second write
// leaves the visit in place and is logged, not returned.
func (s *Service) ScheduleVisit(ctx context.Context, apiKey string, engineerID int, startDate, licenseNumber, googleLocation string) (int, error) {
	licenseID, err := redmine.ParseLicenseIssueID(licenseNumber)
	if err != nil {
		return 0, fmt.Errorf("invalid mining license number format: %w", err)
	}

	visit, err := s.redmine.CreateIssue(ctx, apiKey, redmine.NewIssue{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerSiteVisit,
		StatusID:     redmine.StatusScheduled,
		Subject:      fmt.Sprintf("Site Visit for Mining License %s", licenseNumber),
		StartDate:    startDate,
		AssignedToID: engineerID,
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldLicenseNumber, Value: licenseNumber},
			{ID: redmine.FieldGoogleLocation, Value: googleLocation},
		},
	})
	if err != nil {
		return 0, err
	}

	err = s.redmine.UpdateIssue(ctx, apiKey, licenseID, redmine.IssueUpdate{StatusID: redmine.StatusScheduled})
	if err != nil {
		s.logger.WithError(err).WithField("license_id", licenseID).
			Warn("site visit created but license status update failed")
	}
	return visit.ID, nil
}

// UpdateOwnerMeeting reschedules or restates an owner meeting. A zero
// status keeps the meeting in the scheduled stage.
func (s *Service) UpdateOwnerMeeting(ctx context.Context, apiKey string, meetingID, statusID int, dueDate string) error {
	if statusID == 0 {
		statusID = redmine.StatusScheduled
	}
	return s.redmine.UpdateIssue(ctx, apiKey, meetingID, redmine.IssueUpdate{
		StatusID: statusID,
		DueDate:  dueDate,
	})
}
