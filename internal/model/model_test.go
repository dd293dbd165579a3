package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func window(start, end string) Session {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		panic(err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		panic(err)
	}
	return Session{ID: 1, StartDate: &s, EndDate: &e}
}

func TestClassifyPeriod(t *testing.T) {
	session := window("2021-01-01", "2021-06-30")

	tests := []struct {
		date string
		want Period
	}{
		{"2020-12-31", PeriodBefore},
		{"2021-01-01", PeriodDuring}, // start boundary inclusive
		{"2021-03-15", PeriodDuring},
		{"2021-06-30", PeriodDuring}, // end boundary inclusive
		{"2021-07-01", PeriodAfter},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := time.Parse("2006-01-02", tt.date)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ClassifyPeriod(d, &session))
		})
	}
}

func TestSessionContains(t *testing.T) {
	session := window("2021-01-01", "2021-06-30")
	assert.True(t, session.Contains(*session.StartDate))
	assert.True(t, session.Contains(*session.EndDate))

	windowless := Session{ID: 2}
	assert.False(t, windowless.HasWindow())
	assert.False(t, windowless.Contains(*session.StartDate))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		donor string
		want  string
	}{
		{"plain name", "Jane Doe", "Jane Doe"},
		{"composite record", "D-12345|2021|Desert Realty PAC", "Desert Realty PAC"},
		{"trailing whitespace", "D-1| Jane Doe ", "Jane Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Donation{DonorName: tt.donor}
			assert.Equal(t, tt.want, d.DisplayName())
		})
	}
}

func TestIsIndividual(t *testing.T) {
	assert.True(t, (&Donation{DonorType: "Individual"}).IsIndividual())
	assert.True(t, (&Donation{DonorType: " individual "}).IsIndividual())
	assert.False(t, (&Donation{DonorType: "PAC"}).IsIndividual())
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandHigh, BandFor(1.0))
	assert.Equal(t, BandHigh, BandFor(0.7))
	assert.Equal(t, BandMedium, BandFor(0.69))
	assert.Equal(t, BandMedium, BandFor(0.4))
	assert.Equal(t, BandLow, BandFor(0.39))
	assert.Equal(t, BandLow, BandFor(0.1))
}
