// Package management implements the GSMB management dashboards: revenue
// and volume aggregates over the license trackers, complaint and role
// tallies, and officer account administration.
package management

import (
	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

// Service exposes the management operations.
type Service struct {
	redmine *redmine.Client
	logger  *logrus.Logger
}

// New wires the service to its Redmine client.
func New(client *redmine.Client, logger *logrus.Logger) *Service {
	return &Service{redmine: client, logger: logger}
}

var monthNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// monthIndex reads the month out of a Redmine timestamp ("2006-01-02..."
// prefix). Returns -1 when the timestamp is malformed.
func monthIndex(createdOn string) int {
	if len(createdOn) < 7 {
		return -1
	}
	switch m := createdOn[5:7]; {
	case m >= "01" && m <= "09":
		return int(m[1] - '1')
	case m == "10", m == "11", m == "12":
		return 9 + int(m[1]-'0')
	default:
		return -1
	}
}
