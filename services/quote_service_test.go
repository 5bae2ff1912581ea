package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aroussel/garage-api/models"
)

func defaultSnapshot() models.SettingsSnapshot {
	return models.SettingsSnapshot{
		HourlyRate:          60,
		VATRate:             0.20,
		QuoteValidityDays:   15,
		CancelDeadlineHours: 24,
	}
}

func TestComputeQuote_Pricing(t *testing.T) {
	f := setupWorkflowFixture(t)

	// 2h labor at 60/h plus 30 of parts = 150 excl. VAT
	quote, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.NoError(t, err)

	assert.Equal(t, models.QuoteDraft, quote.Status)
	assert.Len(t, quote.Lines, 1)
	assert.Equal(t, 150.0, quote.Lines[0].UnitPrice)
	assert.Equal(t, 150.0, quote.Subtotal)
	assert.Equal(t, 30.0, quote.VATAmount)
	assert.Equal(t, 180.0, quote.Total)
	assert.Equal(t, 60.0, quote.HourlyRate)
	assert.Equal(t, 0.20, quote.VATRate)
}

func TestComputeQuote_MultipleFaults(t *testing.T) {
	f := setupWorkflowFixture(t)
	second := createExtraFault(t, f, "Oil change", 0.5, 45)

	quote, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID, second.ID}, defaultSnapshot())
	assert.NoError(t, err)

	// 150 + (0.5*60 + 45) = 225 excl. VAT
	assert.Len(t, quote.Lines, 2)
	assert.Equal(t, 225.0, quote.Subtotal)
	assert.Equal(t, 45.0, quote.VATAmount)
	assert.Equal(t, 270.0, quote.Total)
}

// createExtraFault adds another fault to the fixture's catalog
func createExtraFault(t *testing.T, f *workflowFixture, name string, hours, parts float64) *models.Fault {
	t.Helper()

	var group models.FaultGroup
	if err := f.db.First(&group).Error; err != nil {
		t.Fatalf("Failed to load fault group: %v", err)
	}
	fault := models.Fault{
		GroupID:    group.ID,
		Name:       name,
		LaborHours: hours,
		PartsCost:  parts,
		IsActive:   true,
	}
	if err := f.db.Create(&fault).Error; err != nil {
		t.Fatalf("Failed to create fault: %v", err)
	}
	return &fault
}

func TestComputeQuote_InvalidSelection(t *testing.T) {
	f := setupWorkflowFixture(t)

	t.Run("empty selection", func(t *testing.T) {
		_, err := ComputeQuote(f.repair.ID, nil, defaultSnapshot())
		assert.Equal(t, CodeInvalidSelection, CodeOf(err))
	})

	t.Run("unknown fault", func(t *testing.T) {
		_, err := ComputeQuote(f.repair.ID, []uint{9999}, defaultSnapshot())
		assert.Equal(t, CodeInvalidSelection, CodeOf(err))
	})

	t.Run("inactive fault", func(t *testing.T) {
		assert.NoError(t, f.db.Model(f.fault).Update("is_active", false).Error)
		_, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
		assert.Equal(t, CodeInvalidSelection, CodeOf(err))
	})
}

func TestComputeQuote_SupersedesPrevious(t *testing.T) {
	f := setupWorkflowFixture(t)

	first, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.NoError(t, err)

	second, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.NoError(t, err)
	assert.NotEqual(t, first.Number, second.Number)

	var reloaded models.Quote
	assert.NoError(t, f.db.First(&reloaded, first.ID).Error)
	assert.Equal(t, models.QuoteSuperseded, reloaded.Status)
}

func TestComputeQuote_RejectedOnceAccepted(t *testing.T) {
	f := setupWorkflowFixture(t)
	f.computeAndIssue(t)

	_, err := ApplyTransition(f.repair.ID, models.StatusQuoteAccepted, f.client, "")
	assert.NoError(t, err)

	_, err = ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.Equal(t, CodePreconditionNotMet, CodeOf(err))
}

func TestQuoteNumbering_Sequential(t *testing.T) {
	f := setupWorkflowFixture(t)
	year := time.Now().Year()

	first, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("DEV-%d-001", year), first.Number)

	second, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("DEV-%d-002", year), second.Number)
}

func TestIssueQuote_FreezesRates(t *testing.T) {
	f := setupWorkflowFixture(t)

	_, err := ComputeQuote(f.repair.ID, []uint{f.fault.ID}, defaultSnapshot())
	assert.NoError(t, err)

	_, err = ApplyTransition(f.repair.ID, models.StatusQuoteIssued, f.manager, "")
	assert.NoError(t, err)

	quote, err := GetQuoteForCase(f.repair.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.QuoteIssued, quote.Status)
	assert.True(t, quote.IsLocked())
	assert.NotNil(t, quote.IssuedAt)
	assert.NotNil(t, quote.ValidUntil)

	// Validity runs from issuance for the configured number of days
	expected := quote.IssuedAt.AddDate(0, 0, 15)
	assert.WithinDuration(t, expected, *quote.ValidUntil, time.Second)

	// A settings change afterwards does not touch the issued quote
	settings, err := models.GetSettings(f.db)
	assert.NoError(t, err)
	settings.HourlyRate = 90
	assert.NoError(t, f.db.Save(settings).Error)

	reloaded, err := GetQuoteForCase(f.repair.ID)
	assert.NoError(t, err)
	assert.Equal(t, 60.0, reloaded.HourlyRate)
	assert.Equal(t, 180.0, reloaded.Total)
}
