package redmine

import (
	"fmt"
	"strconv"
	"strings"
)

// ProjectID is the single Redmine project holding every business issue.
const ProjectID = 1

// ProjectSlug is the project identifier used by slug-addressed endpoints.
const ProjectSlug = "mmpro-gsmb"

// Trackers. Every business object is an issue under one of these.
const (
	TrackerMiningLicense    = 4
	TrackerTransportLicense = 5
	TrackerComplaint        = 6
	TrackerMeeting          = 11 // officer/owner meeting appointments
	TrackerSiteVisit        = 12 // mining engineer site visits
)

// Issue statuses. Status semantics depend on the tracker.
const (
	StatusNew        = 1  // complaints start here
	StatusClosed     = 5  // appointments end here
	StatusRejected   = 6  // ML rejected by the mining engineer
	StatusValid      = 7  // ML issued and active
	StatusActive     = 8  // TPL in its validity window
	StatusAwaiting   = 26 // ML request awaiting engineer scheduling
	StatusScheduled  = 31 // ML request with a site visit scheduled
	StatusApproved   = 32 // ML request approved by the engineer
	StatusMeetingSet = 34 // meeting appointment scheduled
	StatusHold       = 39 // ML request put on hold
)

// Custom field ids, shared across trackers and users.
const (
	FieldRoyalty             = 18
	FieldExplorationNo       = 19
	FieldLandName            = 28
	FieldLandOwnerName       = 29
	FieldVillageName         = 30
	FieldGramaNiladhari      = 31
	FieldDivisionalSecretary = 32
	FieldAdminDistrict       = 33
	FieldCapacity            = 34
	FieldLorryNumber         = 53
	FieldDriverContact       = 54
	FieldRoute01             = 55
	FieldRoute02             = 56
	FieldRoute03             = 57
	FieldCubes               = 58
	FieldTPLLicenseNumber    = 59
	FieldUsed                = 63
	FieldRemaining           = 64
	FieldMobileNumber        = 66
	FieldComplainantRole     = 67
	FieldDestination         = 68
	FieldEconomicViability   = 70
	FieldRestorationPlan     = 72
	FieldPaymentReceipt      = 80
	FieldDeedSurveyPlan      = 90
	FieldGoogleLocation      = 92
	FieldMEReport            = 94
	FieldMEComment           = 96
	FieldMECommentFinal      = 97
	FieldMEReportFinal       = 98
	FieldMonthCapacity       = 99
	FieldLicenseNumber       = 101
	FieldMeetingLocation     = 102
	FieldBoundarySurvey      = 105
	FieldHoldReason          = 106
)

// Custom field display names, exactly as configured in Redmine. Two of them
// carry a trailing space which name-keyed lookups must preserve.
const (
	NameRoyalty             = "Royalty"
	NameExplorationNo       = "Exploration Licence No"
	NameLandName            = "Land Name(Licence Details)"
	NameLandOwnerName       = "Land owner name"
	NameVillageName         = "Name of village "
	NameGramaNiladhari      = "Grama Niladhari Division"
	NameDivisionalSecretary = "Divisional Secretary Division"
	NameAdminDistrict       = "Administrative District"
	NameCapacity            = "Capacity"
	NameLorryNumber         = "Lorry Number"
	NameDriverContact       = "Driver Contact"
	NameRoute01             = "Route 01"
	NameRoute02             = "Route 02"
	NameRoute03             = "Route 03"
	NameCubes               = "Cubes"
	NameUsed                = "Used"
	NameRemaining           = "Remaining"
	NameMobileNumber        = "Mobile Number"
	NameDestination         = "Destination"
	NameGoogleLocation      = "Google location "
	NameLicenseNumber       = "Mining License Number"
	NameApplicant           = "Name of Applicant OR Company"
	NameStartDate           = "Start Date"
	NameEndDate             = "End Date"

	NameEconomicViability = "Economic Viability Report"
	NameRestorationPlan   = "Detailed Mine Restoration Plan"
	NameDeedSurveyPlan    = "Deed and Survey Plan"
	NamePaymentReceipt    = "Payment Receipt"
	NameBoundarySurvey    = "License Boundary Survey"
	NameLicenseFeeReceipt = "License fee receipt"

	NameNIC         = "National Identity Card"
	NamePhone       = "Phone Number"
	NameUserType    = "User Type"
	NameDesignation = "Designation"
)

// MLStatusLabel maps a mining-license request status id to the label the
// engineer dashboards show. Every id the workflow can produce has exactly
// one entry here.
var MLStatusLabel = map[int]string{
	StatusRejected:  "Rejected",
	StatusAwaiting:  "Awaiting ME Scheduling",
	StatusScheduled: "ME Appointment Scheduled",
	StatusApproved:  "ME Approved",
}

const licensePrefix = "LLL/100/"

// FormatLicenseNumber builds the canonical license number stamped into
// field 101 after an issue is created.
func FormatLicenseNumber(issueID int) string {
	return licensePrefix + strconv.Itoa(issueID)
}

// FormatRequestRef builds the label used for license requests, which carries
// an "ML Request " prefix the site-visit join relies on.
func FormatRequestRef(issueID int) string {
	return "ML Request " + FormatLicenseNumber(issueID)
}

// ParseLicenseIssueID extracts the issue id from a canonical license number,
// tolerating the request prefix and surrounding whitespace.
func ParseLicenseIssueID(number string) (int, error) {
	s := strings.TrimSpace(number)
	s = strings.TrimPrefix(s, "ML Request ")
	if !strings.HasPrefix(s, licensePrefix) {
		return 0, fmt.Errorf("redmine: malformed license number %q", number)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(s, licensePrefix))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("redmine: malformed license number %q", number)
	}
	return id, nil
}

// EqualLicenseNumbers compares two license numbers the way the dashboards
// match them: trimmed and case-insensitively.
func EqualLicenseNumbers(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
