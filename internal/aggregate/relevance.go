package aggregate

import (
	"strings"

	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/model"
)

// IsPoliticallyRelevant computes the advisory relevance flag for a
// donation. Non-individual donors always qualify; individuals qualify by
// lobbying-adjacent occupation, PAC-adjacent employer, or amount at or
// above the configured threshold. The flag focuses downstream pairing on
// higher-signal donations; it is not a hard exclusion from the dataset.
func IsPoliticallyRelevant(d *model.Donation, cfg config.Relevance) bool {
	if !d.IsIndividual() {
		return true
	}

	occupation := strings.ToLower(d.Occupation)
	for _, kw := range cfg.OccupationKeywords {
		if kw != "" && strings.Contains(occupation, strings.ToLower(kw)) {
			return true
		}
	}

	employer := strings.ToLower(d.Employer)
	for _, kw := range cfg.EmployerKeywords {
		if kw != "" && strings.Contains(employer, strings.ToLower(kw)) {
			return true
		}
	}

	return d.Amount >= cfg.MinAmount
}
