package management

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// MonthCubes is the sand volume moved in one calendar month.
type MonthCubes struct {
	Month      string  `json:"month"`
	TotalCubes float64 `json:"totalCubes"`
}

// MonthlyCubes sums the cubes on every transport permit by creation month.
// All twelve months appear, zero filled.
func (s *Service) MonthlyCubes(ctx context.Context, apiKey string) ([]MonthCubes, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerTransportLicense,
	})
	if err != nil {
		return nil, err
	}
	var totals [12]float64
	for _, issue := range issues {
		idx := monthIndex(issue.CreatedOn)
		if idx < 0 {
			continue
		}
		raw := issue.CustomFields.GetByID(redmine.FieldCubes)
		if raw == "" {
			continue
		}
		cubes, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		totals[idx] += cubes
	}
	result := make([]MonthCubes, 12)
	for i, name := range monthNames {
		result[i] = MonthCubes{Month: name, TotalCubes: totals[i]}
	}
	return result, nil
}

// MonthLicenses is the number of license applications opened in one month.
type MonthLicenses struct {
	Month         string `json:"month"`
	MiningLicense int    `json:"miningLicense"`
}

// MonthlyLicenseCounts counts license applications by creation month.
func (s *Service) MonthlyLicenseCounts(ctx context.Context, apiKey string) ([]MonthLicenses, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
	})
	if err != nil {
		return nil, err
	}
	var counts [12]int
	for _, issue := range issues {
		if idx := monthIndex(issue.CreatedOn); idx >= 0 {
			counts[idx]++
		}
	}
	result := make([]MonthLicenses, 12)
	for i, name := range monthNames {
		result[i] = MonthLicenses{Month: name, MiningLicense: counts[i]}
	}
	return result, nil
}

// Holder is one mining owner ranked by licensed capacity. Value is the
// percentage of capacity already used.
type Holder struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Capacity float64 `json:"capacity"`
}

// TopMiningHolders ranks owners by licensed capacity, largest first,
// keeping the top ten. Licenses with no assignee or no positive capacity
// are skipped.
func (s *Service) TopMiningHolders(ctx context.Context, apiKey string) ([]Holder, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
	})
	if err != nil {
		return nil, err
	}
	var holders []Holder
	for _, issue := range issues {
		owner := issue.AssigneeName()
		if owner == "" {
			continue
		}
		capacity := issue.CustomFields.FloatOr(redmine.NameCapacity, 0)
		if capacity <= 0 {
			continue
		}
		used := issue.CustomFields.FloatOr(redmine.NameUsed, 0)
		holders = append(holders, Holder{
			Label:    owner,
			Value:    math.Round(used/capacity*10000) / 100,
			Capacity: capacity,
		})
	}
	sort.SliceStable(holders, func(i, j int) bool { return holders[i].Capacity > holders[j].Capacity })
	if len(holders) > 10 {
		holders = holders[:10]
	}
	return holders, nil
}

// RoyaltyOrder is one owner's royalty contribution on the revenue board.
type RoyaltyOrder struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Avatar       string  `json:"avatar"`
	RoyaltyValue float64 `json:"royalty_value"`
}

// RoyaltySummary is the total collected royalty plus the five largest
// contributors.
type RoyaltySummary struct {
	TotalRoyalty float64        `json:"total_royalty"`
	Orders       []RoyaltyOrder `json:"orders"`
}

// RoyaltyCounts sums royalties across issued licenses and lists the top
// five contributors. Only licenses in the Valid status participate.
func (s *Service) RoyaltyCounts(ctx context.Context, apiKey string) (RoyaltySummary, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
	})
	if err != nil {
		return RoyaltySummary{}, err
	}
	summary := RoyaltySummary{Orders: []RoyaltyOrder{}}
	for _, issue := range issues {
		if issue.Status.Name != "Valid" {
			continue
		}
		royalty := issue.CustomFields.FloatOr(redmine.NameRoyalty, 0)
		if royalty <= 0 {
			continue
		}
		title := issue.AssigneeName()
		if title == "" {
			title = "Unknown"
		}
		summary.TotalRoyalty += royalty
		summary.Orders = append(summary.Orders, RoyaltyOrder{
			Title:        title,
			Description:  fmt.Sprintf("Royalty: %g", royalty),
			Avatar:       "https://via.placeholder.com/40",
			RoyaltyValue: royalty,
		})
	}
	sort.SliceStable(summary.Orders, func(i, j int) bool {
		return summary.Orders[i].RoyaltyValue > summary.Orders[j].RoyaltyValue
	})
	if len(summary.Orders) > 5 {
		summary.Orders = summary.Orders[:5]
	}
	return summary, nil
}

// NameCount is one labelled tally on a distribution chart.
type NameCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TransportDestinations counts transport permits per destination.
func (s *Service) TransportDestinations(ctx context.Context, apiKey string) ([]NameCount, error) {
	return s.fieldCounts(ctx, apiKey, redmine.TrackerTransportLicense, redmine.NameDestination)
}

// LicenseLocations counts license applications per administrative
// district.
func (s *Service) LicenseLocations(ctx context.Context, apiKey string) ([]NameCount, error) {
	return s.fieldCounts(ctx, apiKey, redmine.TrackerMiningLicense, redmine.NameAdminDistrict)
}

func (s *Service) fieldCounts(ctx context.Context, apiKey string, trackerID int, fieldName string) ([]NameCount, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: trackerID,
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, issue := range issues {
		if value := issue.CustomFields.Get(fieldName); value != "" {
			counts[value]++
		}
	}
	result := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, NameCount{Name: name, Value: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ComplaintCounts is the complaint backlog broken down by workflow stage.
type ComplaintCounts struct {
	New        int `json:"New"`
	Rejected   int `json:"Rejected"`
	InProgress int `json:"InProgress"`
	Executed   int `json:"Executed"`
	Total      int `json:"total"`
}

// ComplaintTally counts complaints per stage. Total covers every
// complaint, including ones in unmapped statuses.
func (s *Service) ComplaintTally(ctx context.Context, apiKey string) (ComplaintCounts, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerComplaint,
	})
	if err != nil {
		return ComplaintCounts{}, err
	}
	counts := ComplaintCounts{Total: len(issues)}
	for _, issue := range issues {
		switch issue.Status.Name {
		case "New":
			counts.New++
		case "Rejected":
			counts.Rejected++
		case "In Progress":
			counts.InProgress++
		case "Executed":
			counts.Executed++
		}
	}
	return counts, nil
}

// RoleCounts is the membership tally per front-end role.
type RoleCounts struct {
	LicenceOwner       int `json:"licenceOwner"`
	ActiveGSMBOfficers int `json:"activeGSMBOfficers"`
	PoliceOfficers     int `json:"policeOfficers"`
	MiningEngineer     int `json:"miningEngineer"`
	TotalCount         int `json:"total_count"`
}

// RoleTally counts project members per role. Only a member's first role
// counts, matching how accounts are provisioned.
func (s *Service) RoleTally(ctx context.Context, apiKey string) (RoleCounts, error) {
	memberships, err := s.redmine.ListMemberships(ctx, apiKey, redmine.ProjectSlug)
	if err != nil {
		return RoleCounts{}, err
	}
	var counts RoleCounts
	for _, m := range memberships {
		if len(m.Roles) == 0 {
			continue
		}
		switch m.Roles[0].Name {
		case "MLOwner":
			counts.LicenceOwner++
		case "GSMBOfficer":
			counts.ActiveGSMBOfficers++
		case "PoliceOfficer":
			counts.PoliceOfficers++
		case "miningEngineer":
			counts.MiningEngineer++
		}
	}
	counts.TotalCount = counts.LicenceOwner + counts.ActiveGSMBOfficers +
		counts.PoliceOfficers + counts.MiningEngineer
	return counts, nil
}

// LicenseCounts is the license stock broken down by lifecycle stage.
type LicenseCounts struct {
	Valid    int `json:"valid"`
	Expired  int `json:"expired"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// LicenseTally counts licenses per lifecycle stage. Total covers every
// application regardless of stage.
func (s *Service) LicenseTally(ctx context.Context, apiKey string) (LicenseCounts, error) {
	issues, err := s.redmine.ListAllIssues(ctx, apiKey, redmine.Filter{
		ProjectID: redmine.ProjectID,
		TrackerID: redmine.TrackerMiningLicense,
	})
	if err != nil {
		return LicenseCounts{}, err
	}
	counts := LicenseCounts{Total: len(issues)}
	for _, issue := range issues {
		switch issue.Status.Name {
		case "Valid":
			counts.Valid++
		case "Expired":
			counts.Expired++
		case "Rejected":
			counts.Rejected++
		}
	}
	return counts, nil
}
