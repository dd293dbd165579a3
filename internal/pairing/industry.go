package pairing

import (
	"strings"

	"github.com/jordanharb/moneytrail/internal/model"
)

// industry pairs donor-side keywords with bill-subject keywords. A donor
// and a bill "category match" when they share at least one industry.
type industry struct {
	name          string
	donorKeywords []string
	billKeywords  []string
}

// industries is the built-in subject-matter table. Donor keywords match
// against occupation, employer, and donor name; bill keywords against the
// bill title.
var industries = []industry{
	{
		name:          "real estate & development",
		donorKeywords: []string{"realtor", "realty", "real estate", "developer", "development", "builder", "construction", "homebuilder"},
		billKeywords:  []string{"zoning", "housing", "development", "property", "real estate", "construction", "landlord", "tenant"},
	},
	{
		name:          "healthcare",
		donorKeywords: []string{"health", "medical", "hospital", "physician", "nurse", "pharma", "dental"},
		billKeywords:  []string{"health", "medical", "hospital", "pharmacy", "medicaid", "patient"},
	},
	{
		name:          "energy & utilities",
		donorKeywords: []string{"energy", "utility", "utilities", "solar", "electric", "oil", "gas", "mining"},
		billKeywords:  []string{"energy", "utility", "solar", "renewable", "electric", "mining", "grid"},
	},
	{
		name:          "education",
		donorKeywords: []string{"education", "school", "university", "charter"},
		billKeywords:  []string{"education", "school", "charter", "university", "tuition", "curriculum"},
	},
	{
		name:          "finance & insurance",
		donorKeywords: []string{"bank", "insurance", "finance", "financial", "lending", "mortgage", "investment"},
		billKeywords:  []string{"banking", "insurance", "financial", "lending", "loan", "credit", "securities"},
	},
	{
		name:          "legal",
		donorKeywords: []string{"attorney", "lawyer", "law firm", "legal"},
		billKeywords:  []string{"liability", "tort", "court", "judicial", "attorney", "damages"},
	},
	{
		name:          "agriculture",
		donorKeywords: []string{"farm", "ranch", "agriculture", "dairy", "cattle"},
		billKeywords:  []string{"agriculture", "farm", "livestock", "irrigation", "water rights"},
	},
}

// donorIndustries returns the industries a donor's occupation, employer,
// and recorded name suggest.
func donorIndustries(d *model.Donation) []string {
	haystack := strings.ToLower(d.Occupation + " " + d.Employer + " " + d.DonorName)

	var matched []string
	for _, ind := range industries {
		for _, kw := range ind.donorKeywords {
			if strings.Contains(haystack, kw) {
				matched = append(matched, ind.name)
				break
			}
		}
	}
	return matched
}

// billIndustries returns the industries a bill's title suggests.
func billIndustries(action *model.LegislativeAction) []string {
	title := strings.ToLower(action.BillTitle)

	var matched []string
	for _, ind := range industries {
		for _, kw := range ind.billKeywords {
			if strings.Contains(title, kw) {
				matched = append(matched, ind.name)
				break
			}
		}
	}
	return matched
}

// sharedIndustry returns the first industry both lists contain, preserving
// table order for determinism.
func sharedIndustry(donor, bill []string) (string, bool) {
	for _, ind := range industries {
		if containsString(donor, ind.name) && containsString(bill, ind.name) {
			return ind.name, true
		}
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
