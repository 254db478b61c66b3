package management

import (
	"context"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// User custom field names surfaced on the account administration screens.
const (
	fieldNICBackImage  = "NIC back image"
	fieldNICFrontImage = "NIC front image"
	fieldWorkID        = "work ID"
)

// Officer is one GSMB officer account pending activation.
type Officer struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Status       int               `json:"status"`
	CustomFields map[string]string `json:"custom_fields"`
}

// OfficerList is the pending officer roster with its size.
type OfficerList struct {
	Count    int       `json:"count"`
	Officers []Officer `json:"officers"`
}

// InactiveOfficers lists the locked accounts awaiting management approval,
// with the identity fields needed to vet them.
func (s *Service) InactiveOfficers(ctx context.Context, apiKey string) (OfficerList, error) {
	users, err := s.redmine.ListUsers(ctx, apiKey, redmine.UserFilter{Status: redmine.UserStatusLocked})
	if err != nil {
		return OfficerList{}, err
	}
	officers := make([]Officer, 0, len(users))
	for _, user := range users {
		fields := user.CustomFields
		officers = append(officers, Officer{
			ID:     user.ID,
			Name:   user.FullName(),
			Email:  user.Mail,
			Status: redmine.UserStatusLocked,
			CustomFields: map[string]string{
				redmine.NameDesignation:  fields.Get(redmine.NameDesignation),
				redmine.NameMobileNumber: fields.Get(redmine.NameMobileNumber),
				fieldNICBackImage:        fields.Get(fieldNICBackImage),
				fieldNICFrontImage:       fields.Get(fieldNICFrontImage),
				redmine.NameNIC:          fields.Get(redmine.NameNIC),
				redmine.NameUserType:     fields.Get(redmine.NameUserType),
				fieldWorkID:              fields.Get(fieldWorkID),
			},
		})
	}
	return OfficerList{Count: len(officers), Officers: officers}, nil
}

// ManagedUser is one account row on the user administration screens,
// carrying every populated custom field.
type ManagedUser struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Status       int               `json:"status"`
	CustomFields map[string]string `json:"custom_fields"`
}

// UsersByType lists locked accounts whose declared user type matches.
// New registrations stay locked until management reviews them here.
func (s *Service) UsersByType(ctx context.Context, apiKey, userType string) ([]ManagedUser, error) {
	return s.usersByType(ctx, apiKey, redmine.UserStatusLocked, userType)
}

// ActiveMLOwners lists the active accounts registered as mining owners.
func (s *Service) ActiveMLOwners(ctx context.Context, apiKey string) ([]ManagedUser, error) {
	return s.usersByType(ctx, apiKey, redmine.UserStatusActive, "mlOwner")
}

func (s *Service) usersByType(ctx context.Context, apiKey string, status int, userType string) ([]ManagedUser, error) {
	users, err := s.redmine.ListUsers(ctx, apiKey, redmine.UserFilter{Status: status})
	if err != nil {
		return nil, err
	}
	matched := []ManagedUser{}
	for _, user := range users {
		if user.CustomFields.Get(redmine.NameUserType) != userType {
			continue
		}
		matched = append(matched, ManagedUser{
			ID:           user.ID,
			Name:         user.FullName(),
			Email:        user.Mail,
			Status:       status,
			CustomFields: user.CustomFields.ByName(),
		})
	}
	return matched, nil
}

// ActivateOfficer unlocks an officer account.
func (s *Service) ActivateOfficer(ctx context.Context, apiKey string, userID int) error {
	return s.redmine.UpdateUser(ctx, apiKey, userID, redmine.UserUpdate{Status: redmine.UserStatusActive})
}
