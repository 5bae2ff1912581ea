package services

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/models"
)

// transition is one edge of the case workflow: an optional guard checked
// before the status flips, and an optional side effect executed inside
// the same transaction.
type transition struct {
	guard  func(tx *gorm.DB, c *models.Case, now time.Time) error
	effect func(tx *gorm.DB, c *models.Case, actor *models.User, now time.Time, comment string) error
}

// transitionTable is the single authority on legal case status changes:
//
//	new                   -> quote_issued
//	quote_issued          -> quote_accepted | quote_refused | expired
//	quote_accepted        -> appointment_confirmed
//	appointment_confirmed -> in_progress | quote_accepted (cancellation)
//	in_progress           -> ready
//	ready                 -> closed
//
// closed, quote_refused and expired are terminal.
var transitionTable = map[models.CaseStatus]map[models.CaseStatus]transition{
	models.StatusNew: {
		models.StatusQuoteIssued: {
			guard: requireDraftQuote,
			effect: func(tx *gorm.DB, c *models.Case, _ *models.User, now time.Time, _ string) error {
				settings, err := models.GetSettings(tx)
				if err != nil {
					return err
				}
				return issueQuote(tx, c.ID, settings.Snapshot(), now)
			},
		},
	},
	models.StatusQuoteIssued: {
		models.StatusQuoteAccepted: {
			guard: requireIssuedQuote,
			effect: func(tx *gorm.DB, c *models.Case, _ *models.User, now time.Time, _ string) error {
				return markQuote(tx, c.ID, models.QuoteAccepted, now)
			},
		},
		models.StatusQuoteRefused: {
			guard: requireIssuedQuote,
			effect: func(tx *gorm.DB, c *models.Case, _ *models.User, now time.Time, _ string) error {
				return markQuote(tx, c.ID, models.QuoteRefused, now)
			},
		},
		models.StatusExpired: {
			guard: requireExpiredQuote,
			effect: func(tx *gorm.DB, c *models.Case, _ *models.User, now time.Time, _ string) error {
				return markQuote(tx, c.ID, models.QuoteExpired, now)
			},
		},
	},
	models.StatusQuoteAccepted: {
		models.StatusAppointmentConfirmed: {
			guard: requireActiveAppointment,
		},
	},
	models.StatusAppointmentConfirmed: {
		models.StatusInProgress: {
			guard: requireActiveAppointment,
		},
		models.StatusQuoteAccepted: {
			// Cancellation edge: releasing the seat is part of the same
			// transaction as the status flip
			guard: requireActiveAppointment,
			effect: func(tx *gorm.DB, c *models.Case, _ *models.User, now time.Time, comment string) error {
				return cancelActiveAppointments(tx, c.ID, now, comment)
			},
		},
	},
	models.StatusInProgress: {
		models.StatusReady: {},
	},
	models.StatusReady: {
		models.StatusClosed: {
			guard: requireAcceptedQuote,
			effect: func(tx *gorm.DB, c *models.Case, actor *models.User, now time.Time, _ string) error {
				_, err := generateInvoiceTx(tx, c, now)
				return err
			},
		},
	},
}

// ApplyTransition is the single entry point for case status changes.
// It validates the edge against the transition table and its guard,
// flips the status under an optimistic check, appends the audit log
// entry and runs the edge's side effect, all in one transaction.
// Re-submitting the current status is a recognized no-op that returns
// the case unchanged without a new log entry. Notification dispatch
// happens after commit and never fails the transition.
func ApplyTransition(caseID uint, target models.CaseStatus, actor *models.User, comment string) (*models.Case, error) {
	db := config.GetDB()
	now := time.Now()

	caseLocks.Lock(caseID)
	defer caseLocks.Unlock(caseID)

	var repairCase models.Case
	if err := db.First(&repairCase, caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodeNotFound, "case not found")
		}
		return nil, err
	}

	// Lazy expiration: an issued quote past its validity expires before
	// any other edge is considered
	if target != models.StatusExpired && repairCase.Status == models.StatusQuoteIssued {
		expired, err := expireIfOverdue(db, &repairCase, now)
		if err != nil {
			return nil, err
		}
		if expired {
			notifyAfterTransition(&repairCase, models.StatusQuoteIssued, models.StatusExpired)
		}
	}

	// Idempotent double-submit: already there, nothing to do
	if repairCase.Status == target {
		return &repairCase, nil
	}

	edge, ok := transitionTable[repairCase.Status][target]
	if !ok {
		return nil, NewDomainError(CodeIllegalTransition,
			fmt.Sprintf("no transition from %q to %q", repairCase.Status, target))
	}

	if edge.guard != nil {
		if err := edge.guard(db, &repairCase, now); err != nil {
			return nil, err
		}
	}

	from := repairCase.Status
	err := db.Transaction(func(tx *gorm.DB) error {
		// Optimistic status check: the row must still be in the state
		// the table was consulted for
		result := tx.Model(&models.Case{}).
			Where("id = ? AND status = ?", caseID, from).
			Update("status", target)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewDomainError(CodeIllegalTransition,
				fmt.Sprintf("case left status %q during the transition", from))
		}

		entry := models.StatusLog{
			CaseID:     caseID,
			FromStatus: from,
			ToStatus:   target,
			Comment:    comment,
			CreatedAt:  now,
		}
		if actor != nil {
			entry.ActorID = &actor.ID
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		repairCase.Status = target
		if edge.effect != nil {
			if err := edge.effect(tx, &repairCase, actor, now, comment); err != nil {
				repairCase.Status = from
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"case_id": caseID,
		"from":    from,
		"to":      target,
	}).Info("case transition applied")

	notifyAfterTransition(&repairCase, from, target)

	return &repairCase, nil
}

// expireIfOverdue flips a case with an overdue issued quote to expired.
// Returns true when the expiration was applied by this call.
func expireIfOverdue(db *gorm.DB, c *models.Case, now time.Time) (bool, error) {
	var quote models.Quote
	err := db.Where("case_id = ? AND status = ?", c.ID, models.QuoteIssued).
		Order("id DESC").First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !quote.IsExpired(now) {
		return false, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Case{}).
			Where("id = ? AND status = ?", c.ID, models.StatusQuoteIssued).
			Update("status", models.StatusExpired)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := markQuote(tx, c.ID, models.QuoteExpired, now); err != nil {
			return err
		}
		return tx.Create(&models.StatusLog{
			CaseID:     c.ID,
			FromStatus: models.StatusQuoteIssued,
			ToStatus:   models.StatusExpired,
			Comment:    "quote validity elapsed",
			CreatedAt:  now,
		}).Error
	})
	if err != nil {
		return false, err
	}

	c.Status = models.StatusExpired
	return true, nil
}

// notifyAfterTransition dispatches status-change notifications.
// Fire-and-forget: a delivery failure is logged, never propagated.
func notifyAfterTransition(c *models.Case, from, to models.CaseStatus) {
	if err := NotifyStatusChange(c, from, to); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"case_id": c.ID,
			"to":      to,
		}).Warn("status notification failed")
	}
}

// GetTimeline returns the append-only status history of a case, oldest first
func GetTimeline(caseID uint) ([]models.StatusLog, error) {
	db := config.GetDB()
	var logs []models.StatusLog
	err := db.Preload("Actor").
		Where("case_id = ?", caseID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

// ---- transition guards ----

func requireDraftQuote(tx *gorm.DB, c *models.Case, _ time.Time) error {
	var count int64
	if err := tx.Model(&models.Quote{}).
		Where("case_id = ? AND status = ?", c.ID, models.QuoteDraft).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewDomainError(CodeIllegalTransition, "a draft quote is required before issuing")
	}
	return nil
}

func requireIssuedQuote(tx *gorm.DB, c *models.Case, now time.Time) error {
	var quote models.Quote
	err := tx.Where("case_id = ? AND status = ?", c.ID, models.QuoteIssued).
		Order("id DESC").First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewDomainError(CodeIllegalTransition, "case has no issued quote")
		}
		return err
	}
	if quote.IsExpired(now) {
		return NewDomainError(CodeIllegalTransition, "the quote has expired")
	}
	return nil
}

func requireExpiredQuote(tx *gorm.DB, c *models.Case, now time.Time) error {
	var quote models.Quote
	err := tx.Where("case_id = ? AND status = ?", c.ID, models.QuoteIssued).
		Order("id DESC").First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewDomainError(CodeIllegalTransition, "case has no issued quote")
		}
		return err
	}
	if !quote.IsExpired(now) {
		return NewDomainError(CodeIllegalTransition, "the quote is still valid")
	}
	return nil
}

func requireAcceptedQuote(tx *gorm.DB, c *models.Case, _ time.Time) error {
	var count int64
	if err := tx.Model(&models.Quote{}).
		Where("case_id = ? AND status = ?", c.ID, models.QuoteAccepted).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewDomainError(CodeIllegalTransition, "case has no accepted quote")
	}
	return nil
}

func requireActiveAppointment(tx *gorm.DB, c *models.Case, _ time.Time) error {
	var count int64
	if err := tx.Model(&models.Appointment{}).
		Where("case_id = ? AND status <> ?", c.ID, models.AppointmentCancelled).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewDomainError(CodeIllegalTransition, "case has no confirmed appointment")
	}
	return nil
}

