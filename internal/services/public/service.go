// Package public implements the unauthenticated operations offered to the
// general public: checking a lorry's transport permit, phone verification
// by OTP, and filing complaints. Every Redmine call here runs under the
// admin key since the public has no account.
package public

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/otp"
	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// Service exposes the general public operations.
type Service struct {
	redmine *redmine.Client
	otp     *otp.Service
	logger  *logrus.Logger
	now     func() time.Time
}

// New wires the service to its Redmine client and the OTP service.
func New(client *redmine.Client, otpService *otp.Service, logger *logrus.Logger) *Service {
	return &Service{redmine: client, otp: otpService, logger: logger, now: time.Now}
}

// IsLorryNumberValid reports whether any unexpired transport permit
// carries the given lorry number.
func (s *Service) IsLorryNumberValid(ctx context.Context, lorryNumber string) (bool, error) {
	issues, err := s.redmine.ListAllIssues(ctx, s.redmine.AdminKey(), redmine.Filter{
		TrackerID: redmine.TrackerTransportLicense,
	})
	if err != nil {
		return false, err
	}
	now := s.now().UTC()
	for _, issue := range issues {
		plate := issue.CustomFields.GetByID(redmine.FieldLorryNumber)
		if plate == "" || !strings.EqualFold(plate, lorryNumber) {
			continue
		}
		created, err := issue.CreatedAt()
		if err != nil {
			continue
		}
		expiresAt := created.Add(time.Duration(issue.EstimatedHours * float64(time.Hour)))
		if now.Before(expiresAt) {
			return true, nil
		}
	}
	return false, nil
}

// RequestOTP sends a verification code to the given phone number.
func (s *Service) RequestOTP(ctx context.Context, phone string) error {
	return s.otp.Issue(ctx, phone)
}

// VerifyOTP checks the code sent to the phone number. A matching code is
// consumed and cannot be replayed.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) error {
	return s.otp.Verify(ctx, phone, code)
}

// CreateComplaint files a complaint from a verified member of the public.
func (s *Service) CreateComplaint(ctx context.Context, phoneNumber, vehicleNumber string) (int, error) {
	issue, err := s.redmine.CreateIssue(ctx, s.redmine.AdminKey(), redmine.NewIssue{
		ProjectID:  redmine.ProjectID,
		TrackerID:  redmine.TrackerComplaint,
		StatusID:   redmine.StatusNew,
		PriorityID: 2,
		Subject:    "New Complaint",
		CustomFields: []redmine.FieldValue{
			{ID: redmine.FieldMobileNumber, Value: phoneNumber},
			{ID: redmine.FieldLorryNumber, Value: vehicleNumber},
			{ID: redmine.FieldComplainantRole, Value: "Public"},
		},
	})
	if err != nil {
		return 0, err
	}
	return issue.ID, nil
}
