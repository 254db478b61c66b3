// Package mlowner implements the mining-owner operations: viewing issued
// licenses, creating transport permits against their cube and royalty
// balances, and submitting new license requests.
package mlowner

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
	"github.com/mmpro-lk/gsmb-backend/internal/travel"
)

// Service exposes the mining-owner operations.
type Service struct {
	redmine *redmine.Client
	travel  *travel.Estimator
	logger  *logrus.Logger
	now     func() time.Time
}

// New wires the service to its Redmine client and travel estimator.
func New(client *redmine.Client, estimator *travel.Estimator, logger *logrus.Logger) *Service {
	return &Service{
		redmine: client,
		travel:  estimator,
		logger:  logger,
		now:     time.Now,
	}
}

const dateLayout = "2006-01-02"

// fileFieldNames are the attachment-format fields resolved to download URLs
// on license detail views.
var fileFieldNames = []string{
	redmine.NameEconomicViability,
	redmine.NameLicenseFeeReceipt,
	redmine.NameRestorationPlan,
	"Professional",
	redmine.NameDeedSurveyPlan,
	redmine.NamePaymentReceipt,
	redmine.NameBoundarySurvey,
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
