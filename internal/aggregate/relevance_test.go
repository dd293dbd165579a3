package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/model"
)

func TestIsPoliticallyRelevant(t *testing.T) {
	cfg := config.DefaultRelevance()

	tests := []struct {
		name     string
		donation model.Donation
		want     bool
	}{
		{
			name:     "PAC donor is always relevant",
			donation: model.Donation{DonorType: "PAC", Amount: 2500},
			want:     true,
		},
		{
			name:     "business donor is always relevant",
			donation: model.Donation{DonorType: "Business", Amount: 10},
			want:     true,
		},
		{
			name:     "small individual donation from a teacher",
			donation: model.Donation{DonorType: "Individual", Occupation: "Teacher", Amount: 50},
			want:     false,
		},
		{
			name:     "lobbyist occupation",
			donation: model.Donation{DonorType: "Individual", Occupation: "Registered Lobbyist", Amount: 50},
			want:     true,
		},
		{
			name:     "government affairs occupation",
			donation: model.Donation{DonorType: "Individual", Occupation: "Director of Government Affairs", Amount: 25},
			want:     true,
		},
		{
			name:     "attorney occupation",
			donation: model.Donation{DonorType: "Individual", Occupation: "Attorney at Law", Amount: 100},
			want:     true,
		},
		{
			name:     "PAC employer",
			donation: model.Donation{DonorType: "Individual", Occupation: "Manager", Employer: "Realty PAC of the Southwest", Amount: 20},
			want:     true,
		},
		{
			name:     "committee employer",
			donation: model.Donation{DonorType: "Individual", Occupation: "Staff", Employer: "Citizens Committee", Amount: 20},
			want:     true,
		},
		{
			name:     "amount at threshold",
			donation: model.Donation{DonorType: "Individual", Occupation: "Nurse", Amount: 1000},
			want:     true,
		},
		{
			name:     "amount just under threshold",
			donation: model.Donation{DonorType: "Individual", Occupation: "Nurse", Amount: 999.99},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPoliticallyRelevant(&tt.donation, cfg))
		})
	}
}

func TestConfigurableThreshold(t *testing.T) {
	cfg := config.DefaultRelevance()
	cfg.MinAmount = 500

	d := model.Donation{DonorType: "Individual", Occupation: "Nurse", Amount: 600}
	assert.True(t, IsPoliticallyRelevant(&d, cfg))
}
