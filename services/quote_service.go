package services

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/utils"
)

// ComputeQuote builds a draft quote for a case from the selected faults
// and a settings snapshot. One line per fault, priced from the rate card
// at computation time: lineTotal = laborHours x hourlyRate + partsCost.
// An existing draft or issued quote for the case is superseded, never
// edited or deleted.
func ComputeQuote(caseID uint, faultIDs []uint, settings models.SettingsSnapshot) (*models.Quote, error) {
	db := config.GetDB()

	if len(faultIDs) == 0 {
		return nil, NewDomainError(CodeInvalidSelection, "at least one fault must be selected")
	}

	var repairCase models.Case
	if err := db.First(&repairCase, caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodeNotFound, "case not found")
		}
		return nil, err
	}

	if repairCase.Status != models.StatusNew && repairCase.Status != models.StatusQuoteIssued {
		return nil, NewDomainError(CodePreconditionNotMet,
			fmt.Sprintf("a quote cannot be computed for a case in status %q", repairCase.Status))
	}

	var faults []models.Fault
	if err := db.Where("id IN ? AND is_active = ?", faultIDs, true).Find(&faults).Error; err != nil {
		return nil, err
	}
	if len(faults) != len(uniqueIDs(faultIDs)) {
		return nil, NewDomainError(CodeInvalidSelection, "selection contains unknown or inactive faults")
	}

	var quote *models.Quote
	quoteNumberMu.Lock()
	defer quoteNumberMu.Unlock()

	err := db.Transaction(func(tx *gorm.DB) error {
		// Supersede any still-active previous quote
		if err := tx.Model(&models.Quote{}).
			Where("case_id = ? AND status IN ?", caseID,
				[]models.QuoteStatus{models.QuoteDraft, models.QuoteIssued}).
			Update("status", models.QuoteSuperseded).Error; err != nil {
			return err
		}

		number, err := nextDocumentNumber(tx, "quotes", "DEV", time.Now())
		if err != nil {
			return err
		}

		q := models.Quote{
			CaseID:     caseID,
			Number:     number,
			Status:     models.QuoteDraft,
			VATRate:    settings.VATRate,
			HourlyRate: settings.HourlyRate,
		}

		var subtotal float64
		for _, f := range faults {
			unitPrice := utils.RoundHalfEven(f.TotalCost(settings.HourlyRate), 2)
			line := models.QuoteLine{
				FaultID:    f.ID,
				Label:      f.Name,
				LaborHours: f.LaborHours,
				HourlyRate: settings.HourlyRate,
				PartsCost:  f.PartsCost,
				Quantity:   1,
				UnitPrice:  unitPrice,
				LineTotal:  unitPrice,
			}
			q.Lines = append(q.Lines, line)
			subtotal += line.LineTotal
		}

		q.Subtotal = utils.RoundHalfEven(subtotal, 2)
		q.VATAmount = utils.RoundHalfEven(q.Subtotal*settings.VATRate, 2)
		q.Total = utils.RoundHalfEven(q.Subtotal+q.VATAmount, 2)

		if err := tx.Create(&q).Error; err != nil {
			return err
		}
		quote = &q
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"case_id": caseID,
		"quote":   quote.Number,
		"total":   quote.Total,
	}).Info("quote computed")

	return quote, nil
}

// GetQuoteForCase returns the active (non-superseded) quote of a case,
// applying lazy expiration before returning it.
func GetQuoteForCase(caseID uint) (*models.Quote, error) {
	db := config.GetDB()

	var quote models.Quote
	err := db.Preload("Lines").
		Where("case_id = ? AND status <> ?", caseID, models.QuoteSuperseded).
		Order("id DESC").
		First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodeNotFound, "no quote for this case")
		}
		return nil, err
	}

	if quote.IsExpired(time.Now()) {
		if _, err := ApplyTransition(caseID, models.StatusExpired, nil, "quote validity elapsed"); err != nil {
			return nil, err
		}
		if err := db.Preload("Lines").First(&quote, quote.ID).Error; err != nil {
			return nil, err
		}
	}

	return &quote, nil
}

// SweepExpiredQuotes flips every issued quote past its validity date to
// expired, together with its case. Safe to run concurrently with live
// transitions: expiration goes through the same guarded transition path.
func SweepExpiredQuotes() int {
	db := config.GetDB()

	var caseIDs []uint
	err := db.Model(&models.Quote{}).
		Where("status = ? AND valid_until < ?", models.QuoteIssued, time.Now()).
		Pluck("case_id", &caseIDs).Error
	if err != nil {
		log.WithError(err).Error("expiration sweep query failed")
		return 0
	}

	expired := 0
	for _, id := range caseIDs {
		if _, err := ApplyTransition(id, models.StatusExpired, nil, "quote validity elapsed"); err != nil {
			// Another request may have accepted or expired it in the meantime
			log.WithError(err).WithField("case_id", id).Debug("sweep transition skipped")
			continue
		}
		expired++
	}

	if expired > 0 {
		log.WithField("count", expired).Info("expired quotes swept")
	}
	return expired
}

// issueQuote locks the case's draft quote: sets issuance and validity
// timestamps and freezes lines and totals. Runs inside the workflow
// transaction as the QuoteIssued side effect.
func issueQuote(tx *gorm.DB, caseID uint, settings models.SettingsSnapshot, now time.Time) error {
	var quote models.Quote
	err := tx.Where("case_id = ? AND status = ?", caseID, models.QuoteDraft).
		Order("id DESC").First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewDomainError(CodeIllegalTransition, "no draft quote to issue for this case")
		}
		return err
	}

	validUntil := now.AddDate(0, 0, settings.QuoteValidityDays)
	return tx.Model(&quote).Updates(map[string]interface{}{
		"status":      models.QuoteIssued,
		"issued_at":   now,
		"valid_until": validUntil,
	}).Error
}

// markQuote moves the active issued quote of a case to the given
// terminal status (accepted, refused or expired)
func markQuote(tx *gorm.DB, caseID uint, target models.QuoteStatus, now time.Time) error {
	updates := map[string]interface{}{"status": target}
	if target == models.QuoteAccepted {
		updates["accepted_at"] = now
	}

	result := tx.Model(&models.Quote{}).
		Where("case_id = ? AND status = ?", caseID, models.QuoteIssued).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewDomainError(CodeIllegalTransition, "case has no issued quote")
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
