package officer

import (
	"context"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// Appointment is one scheduled meeting between an officer and an
// applicant.
type Appointment struct {
	ID                  int    `json:"id"`
	Subject             string `json:"subject"`
	Status              string `json:"status"`
	Author              string `json:"author"`
	Tracker             string `json:"tracker"`
	AssignedTo          string `json:"assigned_to"`
	StartDate           string `json:"start_date"`
	DueDate             string `json:"due_date"`
	Description         string `json:"description"`
	MiningLicenseNumber string `json:"mining_license_number"`
}

// Appointments lists the meetings tracked for the project.
func (s *Service) Appointments(ctx context.Context, apiKey string) ([]Appointment, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMeeting,
	})
	if err != nil {
		return nil, err
	}
	appointments := make([]Appointment, 0, len(issues))
	for _, issue := range issues {
		appointments = append(appointments, Appointment{
			ID:                  issue.ID,
			Subject:             issue.Subject,
			Status:              issue.Status.Name,
			Author:              issue.Author.Name,
			Tracker:             issue.Tracker.Name,
			AssignedTo:          issue.AssigneeName(),
			StartDate:           issue.StartDate,
			DueDate:             issue.DueDate,
			Description:         issue.Description,
			MiningLicenseNumber: issue.CustomFields.Get(redmine.NameLicenseNumber),
		})
	}
	return appointments, nil
}

// CreateAppointmentRequest carries the details of a meeting to schedule
// with an applicant.
type CreateAppointmentRequest struct {
	AssignedToID    int    `json:"assigned_to_id"`
	MeetingLocation string `json:"physical_meeting_location"`
	StartDate       string `json:"start_date"`
	Description     string `json:"description"`
}

// CreateAppointment schedules a meeting assigned to the applicant and
// returns the new appointment id.
func (s *Service) CreateAppointment(ctx context.Context, apiKey string, authorID int, req CreateAppointmentRequest) (int, error) {
	issue, err := s.redmine.CreateIssue(ctx, apiKey, redmine.NewIssue{
		ProjectID:    redmine.ProjectID,
		TrackerID:    redmine.TrackerMeeting,
		StatusID:     redmine.StatusMeetingSet,
		AssignedToID: req.AssignedToID,
		AuthorID:     authorID,
		Subject:      "Appointment",
		Description:  req.Description,
		StartDate:    req.StartDate,
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldMeetingLocation, Value: req.MeetingLocation},
		},
	})
	if err != nil {
		return 0, err
	}
	return issue.ID, nil
}
