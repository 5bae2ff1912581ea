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

// ListAvailableSlots expands the recurring templates over [from, to],
// applies the calendar exceptions, merges one-off openings and returns
// the future slots that still have seats left.
func ListAvailableSlots(from, to time.Time) ([]models.AppointmentSlot, error) {
	db := config.GetDB()

	if err := materializeSlots(db, from, to); err != nil {
		return nil, err
	}

	var slots []models.AppointmentSlot
	err := db.Where("start_at >= ? AND start_at < ? AND available = ?", from, to, true).
		Order("start_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	available := make([]models.AppointmentSlot, 0, len(slots))
	for i := range slots {
		slot := slots[i]
		if !slot.StartAt.After(now) {
			continue
		}
		occupied, err := slotOccupancy(db, slot.ID)
		if err != nil {
			return nil, err
		}
		slot.Remaining = slot.Capacity - int(occupied)
		if slot.Remaining > 0 {
			available = append(available, slot)
		}
	}
	return available, nil
}

// Book reserves a seat on a slot for a case whose quote was accepted and
// confirms the appointment through the workflow. The occupancy check and
// the appointment insert run as one atomic operation per slot, so a slot
// is never oversold even under concurrent booking attempts.
func Book(caseID, slotID uint, actor *models.User) (*models.Appointment, error) {
	db := config.GetDB()
	now := time.Now()

	var repairCase models.Case
	if err := db.First(&repairCase, caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodeNotFound, "case not found")
		}
		return nil, err
	}
	if repairCase.Status != models.StatusQuoteAccepted {
		return nil, NewDomainError(CodePreconditionNotMet,
			"an appointment can only be booked once the quote is accepted")
	}

	slotLocks.Lock(slotID)
	defer slotLocks.Unlock(slotID)

	var appointment *models.Appointment
	err := db.Transaction(func(tx *gorm.DB) error {
		var slot models.AppointmentSlot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewDomainError(CodeNotFound, "slot not found")
			}
			return err
		}
		if !slot.Available || !slot.StartAt.After(now) {
			return NewDomainError(CodeSlotUnavailable, "this slot can no longer be booked")
		}

		occupied, err := slotOccupancy(tx, slot.ID)
		if err != nil {
			return err
		}
		if int(occupied) >= slot.Capacity {
			return NewDomainError(CodeSlotUnavailable, "this slot is fully booked")
		}

		// One active appointment per case: re-checked here because two
		// concurrent bookings can both read quote_accepted before either
		// inserts. The partial unique index on appointments backs this up
		// across connections.
		var active int64
		err = tx.Model(&models.Appointment{}).
			Where("case_id = ? AND status <> ?", caseID, models.AppointmentCancelled).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return NewDomainError(CodePreconditionNotMet, "this case already has an appointment")
		}

		a := models.Appointment{
			CaseID: caseID,
			SlotID: slot.ID,
			Status: models.AppointmentConfirmed,
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		appointment = &a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := ApplyTransition(caseID, models.StatusAppointmentConfirmed, actor, ""); err != nil {
		// Undo the reservation so the seat is not silently lost
		undoErr := db.Model(appointment).Updates(map[string]interface{}{
			"status":       models.AppointmentCancelled,
			"cancelled_at": now,
		}).Error
		if undoErr != nil {
			log.WithError(undoErr).WithField("appointment_id", appointment.ID).
				Error("failed to release the seat of a rejected booking")
		}
		return nil, err
	}

	if err := db.Preload("Slot").First(appointment, appointment.ID).Error; err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"case_id": caseID,
		"slot_id": slotID,
	}).Info("appointment booked")

	return appointment, nil
}

// Reschedule moves a confirmed appointment to another slot. Allowed only
// while the cancellation deadline against the current slot has not
// passed; the new slot is reserved under the same atomic occupancy check
// as a fresh booking.
func Reschedule(appointmentID, newSlotID uint, actor *models.User) (*models.Appointment, error) {
	db := config.GetDB()
	now := time.Now()

	appointment, err := loadActiveAppointment(db, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := checkCancelDeadline(db, appointment, now); err != nil {
		return nil, err
	}
	if appointment.SlotID == newSlotID {
		return appointment, nil
	}

	slotLocks.Lock(newSlotID)
	defer slotLocks.Unlock(newSlotID)

	err = db.Transaction(func(tx *gorm.DB) error {
		var slot models.AppointmentSlot
		if err := tx.First(&slot, newSlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewDomainError(CodeNotFound, "slot not found")
			}
			return err
		}
		if !slot.Available || !slot.StartAt.After(now) {
			return NewDomainError(CodeSlotUnavailable, "this slot can no longer be booked")
		}

		occupied, err := slotOccupancy(tx, slot.ID)
		if err != nil {
			return err
		}
		if int(occupied) >= slot.Capacity {
			return NewDomainError(CodeSlotUnavailable, "this slot is fully booked")
		}

		return tx.Model(appointment).Updates(map[string]interface{}{
			"slot_id": newSlotID,
			"status":  models.AppointmentRescheduled,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if err := db.Preload("Slot").First(appointment, appointment.ID).Error; err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"appointment_id": appointmentID,
		"slot_id":        newSlotID,
	}).Info("appointment rescheduled")

	return appointment, nil
}

// CancelAppointment cancels an active appointment before the deadline
// and returns the case to quote_accepted so a new booking is possible.
// The row update and the status flip run inside the same workflow
// transaction, so a cancelled appointment can never be left behind on a
// case that still reads confirmed.
func CancelAppointment(appointmentID uint, actor *models.User, reason string) error {
	db := config.GetDB()
	now := time.Now()

	appointment, err := loadActiveAppointment(db, appointmentID)
	if err != nil {
		return err
	}

	if err := checkCancelDeadline(db, appointment, now); err != nil {
		return err
	}

	if reason == "" {
		reason = "appointment cancelled"
	}
	if _, err := ApplyTransition(appointment.CaseID, models.StatusQuoteAccepted, actor, reason); err != nil {
		return err
	}

	log.WithField("appointment_id", appointmentID).Info("appointment cancelled")
	return nil
}

// cancelActiveAppointments releases every seat the case still holds.
// Runs as the side effect of the confirmed -> accepted edge, inside the
// workflow transaction.
func cancelActiveAppointments(tx *gorm.DB, caseID uint, now time.Time, reason string) error {
	return tx.Model(&models.Appointment{}).
		Where("case_id = ? AND status <> ?", caseID, models.AppointmentCancelled).
		Updates(map[string]interface{}{
			"status":        models.AppointmentCancelled,
			"cancelled_at":  now,
			"cancel_reason": reason,
		}).Error
}

// materializeSlots turns active weekly templates into concrete slot rows
// for the requested horizon. A closed exception suppresses the day and
// disables any rows already created for it; an override exception
// replaces the recurring hours for that date. Idempotent: existing rows
// are reused, never duplicated.
func materializeSlots(db *gorm.DB, from, to time.Time) error {
	var templates []models.SlotTemplate
	if err := db.Where("is_active = ?", true).Find(&templates).Error; err != nil {
		return err
	}

	var exceptions []models.SlotException
	if err := db.Where("date >= ? AND date < ?", dateOnly(from), dateOnly(to).AddDate(0, 0, 1)).
		Find(&exceptions).Error; err != nil {
		return err
	}
	exceptionByDay := make(map[string]*models.SlotException, len(exceptions))
	for i := range exceptions {
		exceptionByDay[dayKey(exceptions[i].Date)] = &exceptions[i]
	}

	for day := dateOnly(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		exc := exceptionByDay[dayKey(day)]

		if exc != nil && exc.Closed {
			// Holiday or closure: withdraw any recurring slots already
			// materialized for that day that nobody booked yet
			if err := disableUnbookedSlots(db, day); err != nil {
				return err
			}
			continue
		}

		if exc != nil {
			slot := models.AppointmentSlot{
				StartAt:   day.Add(time.Duration(exc.StartHour) * time.Hour),
				EndAt:     day.Add(time.Duration(exc.EndHour) * time.Hour),
				Capacity:  exc.Capacity,
				Source:    models.SlotSourceException,
				Available: true,
			}
			if err := db.Where(models.AppointmentSlot{
				StartAt: slot.StartAt,
				Source:  models.SlotSourceException,
			}).FirstOrCreate(&slot).Error; err != nil {
				return err
			}
			continue
		}

		for i := range templates {
			t := templates[i]
			if t.Weekday != day.Weekday() {
				continue
			}
			start := day.Add(time.Duration(t.StartHour)*time.Hour + time.Duration(t.StartMin)*time.Minute)
			end := day.Add(time.Duration(t.EndHour)*time.Hour + time.Duration(t.EndMin)*time.Minute)
			slot := models.AppointmentSlot{
				StartAt:    start,
				EndAt:      end,
				Capacity:   t.Capacity,
				Source:     models.SlotSourceRecurring,
				TemplateID: &t.ID,
				Available:  true,
			}
			if err := db.Where(models.AppointmentSlot{
				StartAt: start,
				Source:  models.SlotSourceRecurring,
			}).Where("template_id = ?", t.ID).FirstOrCreate(&slot).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateOneOffSlot adds a single bookable opening outside the templates
func CreateOneOffSlot(startAt, endAt time.Time, capacity int) (*models.AppointmentSlot, error) {
	if !endAt.After(startAt) {
		return nil, NewDomainError(CodePreconditionNotMet, "slot end must be after its start")
	}
	if capacity < 1 {
		capacity = 1
	}

	db := config.GetDB()
	slot := models.AppointmentSlot{
		StartAt:   startAt,
		EndAt:     endAt,
		Capacity:  capacity,
		Source:    models.SlotSourceOneOff,
		Available: true,
	}
	if err := db.Create(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func loadActiveAppointment(db *gorm.DB, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := db.Preload("Slot").First(&appointment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodeNotFound, "appointment not found")
		}
		return nil, err
	}
	if !appointment.IsActive() {
		return nil, NewDomainError(CodePreconditionNotMet, "the appointment is already cancelled")
	}
	return &appointment, nil
}

// checkCancelDeadline rejects modification or cancellation once the
// settings deadline before the slot start has passed
func checkCancelDeadline(db *gorm.DB, appointment *models.Appointment, now time.Time) error {
	settings, err := models.GetSettings(db)
	if err != nil {
		return err
	}
	deadline := appointment.Slot.StartAt.Add(-time.Duration(settings.CancelDeadlineHours) * time.Hour)
	if !now.Before(deadline) {
		return NewDomainError(CodeDeadlineExceeded,
			fmt.Sprintf("appointments can no longer be changed less than %dh before their start",
				settings.CancelDeadlineHours))
	}
	return nil
}

func slotOccupancy(db *gorm.DB, slotID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Appointment{}).
		Where("slot_id = ? AND status <> ?", slotID, models.AppointmentCancelled).
		Count(&count).Error
	return count, err
}

func disableUnbookedSlots(db *gorm.DB, day time.Time) error {
	var slots []models.AppointmentSlot
	err := db.Where("start_at >= ? AND start_at < ? AND source = ? AND available = ?",
		day, day.AddDate(0, 0, 1), models.SlotSourceRecurring, true).
		Find(&slots).Error
	if err != nil {
		return err
	}
	for i := range slots {
		occupied, err := slotOccupancy(db, slots[i].ID)
		if err != nil {
			return err
		}
		if occupied > 0 {
			continue
		}
		if err := db.Model(&slots[i]).Update("available", false).Error; err != nil {
			return err
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
