package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aroussel/garage-api/models"
)

// acceptedCase walks the fixture's case to quote_accepted, the state
// booking requires
func acceptedCase(t *testing.T, f *workflowFixture) {
	t.Helper()

	f.computeAndIssue(t)
	if _, err := ApplyTransition(f.repair.ID, models.StatusQuoteAccepted, f.client, ""); err != nil {
		t.Fatalf("Failed to accept quote: %v", err)
	}
}

func TestListAvailableSlots_ExpandsTemplates(t *testing.T) {
	f := setupWorkflowFixture(t)

	// One weekly opening matching tomorrow's weekday
	tomorrow := time.Now().AddDate(0, 0, 1)
	template := models.SlotTemplate{
		Weekday:   tomorrow.Weekday(),
		StartHour: 9,
		EndHour:   12,
		Capacity:  2,
		IsActive:  true,
	}
	assert.NoError(t, f.db.Create(&template).Error)

	from := time.Now()
	to := from.AddDate(0, 0, 7)

	slots, err := ListAvailableSlots(from, to)
	assert.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.Equal(t, models.SlotSourceRecurring, slots[0].Source)
	assert.Equal(t, 2, slots[0].Remaining)
	assert.Equal(t, 9, slots[0].StartAt.Hour())

	// Expansion is idempotent
	again, err := ListAvailableSlots(from, to)
	assert.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Equal(t, slots[0].ID, again[0].ID)
}

func TestListAvailableSlots_ClosedException(t *testing.T) {
	f := setupWorkflowFixture(t)

	tomorrow := time.Now().AddDate(0, 0, 1)
	template := models.SlotTemplate{
		Weekday:   tomorrow.Weekday(),
		StartHour: 9,
		EndHour:   12,
		Capacity:  1,
		IsActive:  true,
	}
	assert.NoError(t, f.db.Create(&template).Error)

	day := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
	exception := models.SlotException{
		Date:   day,
		Closed: true,
		Reason: "public holiday",
	}
	assert.NoError(t, f.db.Create(&exception).Error)

	slots, err := ListAvailableSlots(time.Now(), time.Now().AddDate(0, 0, 2))
	assert.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListAvailableSlots_OverrideException(t *testing.T) {
	f := setupWorkflowFixture(t)

	tomorrow := time.Now().AddDate(0, 0, 1)
	day := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
	exception := models.SlotException{
		Date:      day,
		Closed:    false,
		StartHour: 14,
		EndHour:   18,
		Capacity:  3,
		Reason:    "extended afternoon",
	}
	assert.NoError(t, f.db.Create(&exception).Error)

	// The explicit Closed=false must survive the insert; stored as true
	// the override would erase the day instead of reopening it
	var stored models.SlotException
	assert.NoError(t, f.db.First(&stored, exception.ID).Error)
	assert.False(t, stored.Closed)

	slots, err := ListAvailableSlots(time.Now(), time.Now().AddDate(0, 0, 2))
	assert.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.Equal(t, models.SlotSourceException, slots[0].Source)
	assert.Equal(t, 14, slots[0].StartAt.Hour())
	assert.Equal(t, 3, slots[0].Remaining)
}

func TestListAvailableSlots_InactiveTemplate(t *testing.T) {
	f := setupWorkflowFixture(t)

	tomorrow := time.Now().AddDate(0, 0, 1)
	template := models.SlotTemplate{
		Weekday:   tomorrow.Weekday(),
		StartHour: 9,
		EndHour:   12,
		Capacity:  2,
		IsActive:  false,
	}
	assert.NoError(t, f.db.Create(&template).Error)

	var stored models.SlotTemplate
	assert.NoError(t, f.db.First(&stored, template.ID).Error)
	assert.False(t, stored.IsActive)

	slots, err := ListAvailableSlots(time.Now(), time.Now().AddDate(0, 0, 7))
	assert.NoError(t, err)
	assert.Empty(t, slots)
}

func TestBook_Success(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	slot, err := CreateOneOffSlot(time.Now().Add(72*time.Hour), time.Now().Add(74*time.Hour), 2)
	assert.NoError(t, err)

	appointment, err := Book(f.repair.ID, slot.ID, f.client)
	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, appointment.Status)
	assert.Equal(t, slot.ID, appointment.SlotID)
	assert.Equal(t, models.StatusAppointmentConfirmed, f.caseStatus(t))

	// One seat left
	slots, err := ListAvailableSlots(time.Now(), time.Now().Add(100*time.Hour))
	assert.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.Equal(t, 1, slots[0].Remaining)
}

func TestBook_RequiresAcceptedQuote(t *testing.T) {
	f := setupWorkflowFixture(t)

	slot, err := CreateOneOffSlot(time.Now().Add(72*time.Hour), time.Now().Add(74*time.Hour), 1)
	assert.NoError(t, err)

	_, err = Book(f.repair.ID, slot.ID, f.client)
	assert.Equal(t, CodePreconditionNotMet, CodeOf(err))
}

func TestBook_FullSlot(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	other := setupSecondAcceptedCase(t, f)

	slot, err := CreateOneOffSlot(time.Now().Add(72*time.Hour), time.Now().Add(74*time.Hour), 1)
	assert.NoError(t, err)

	_, err = Book(f.repair.ID, slot.ID, f.client)
	assert.NoError(t, err)

	_, err = Book(other.ID, slot.ID, f.client)
	assert.Equal(t, CodeSlotUnavailable, CodeOf(err))
}

func TestBook_CaseAlreadyHoldsASeat(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	first, err := CreateOneOffSlot(time.Now().Add(72*time.Hour), time.Now().Add(74*time.Hour), 1)
	assert.NoError(t, err)
	second, err := CreateOneOffSlot(time.Now().Add(96*time.Hour), time.Now().Add(98*time.Hour), 1)
	assert.NoError(t, err)

	// A booking whose status flip has not landed yet: the case still
	// reads quote_accepted while it already holds a seat
	held := models.Appointment{CaseID: f.repair.ID, SlotID: first.ID, Status: models.AppointmentConfirmed}
	assert.NoError(t, f.db.Create(&held).Error)

	_, err = Book(f.repair.ID, second.ID, f.client)
	assert.Equal(t, CodePreconditionNotMet, CodeOf(err))

	occupied, err := slotOccupancy(f.db, second.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), occupied, "the losing booking must not keep a seat")
}

func TestBook_ConcurrentLastSeat(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	other := setupSecondAcceptedCase(t, f)

	slot, err := CreateOneOffSlot(time.Now().Add(72*time.Hour), time.Now().Add(74*time.Hour), 1)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, caseID := range []uint{f.repair.ID, other.ID} {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = Book(id, slot.ID, f.client)
		}(i, caseID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, CodeSlotUnavailable, CodeOf(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one booking wins the last seat")

	occupied, err := slotOccupancy(f.db, slot.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), occupied)
}

// setupSecondAcceptedCase adds another client with an accepted case to
// compete for slots with the fixture's case
func setupSecondAcceptedCase(t *testing.T, f *workflowFixture) *models.Case {
	t.Helper()

	client2 := models.User{
		Auth0ID: "auth0|client2",
		Name:    "Chloe Petit",
		Email:   "chloe@example.com",
		Role:    models.RoleClient,
	}
	if err := f.db.Create(&client2).Error; err != nil {
		t.Fatalf("Failed to create second client: %v", err)
	}
	plate := "EF-456-GH"
	vehicle2 := models.Vehicle{OwnerID: client2.ID, Brand: "Peugeot", Model: "208", Year: 2020, PlateNumber: &plate}
	if err := f.db.Create(&vehicle2).Error; err != nil {
		t.Fatalf("Failed to create second vehicle: %v", err)
	}
	repair2 := models.Case{
		ClientID:    client2.ID,
		VehicleID:   vehicle2.ID,
		Description: "Flat tire",
		Urgency:     models.UrgencyNormal,
		Status:      models.StatusNew,
	}
	if err := f.db.Create(&repair2).Error; err != nil {
		t.Fatalf("Failed to create second case: %v", err)
	}

	settings, err := models.GetSettings(f.db)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if _, err := ComputeQuote(repair2.ID, []uint{f.fault.ID}, settings.Snapshot()); err != nil {
		t.Fatalf("Failed to compute second quote: %v", err)
	}
	if _, err := ApplyTransition(repair2.ID, models.StatusQuoteIssued, f.manager, ""); err != nil {
		t.Fatalf("Failed to issue second quote: %v", err)
	}
	if _, err := ApplyTransition(repair2.ID, models.StatusQuoteAccepted, &client2, ""); err != nil {
		t.Fatalf("Failed to accept second quote: %v", err)
	}
	return &repair2
}

func TestCancelAppointment_BeforeDeadline(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	// 72h out, well before the 24h deadline
	appointment := f.bookAppointment(t)

	err := CancelAppointment(appointment.ID, f.client, "cannot make it")
	assert.NoError(t, err)

	// Case reopened for booking, seat released
	assert.Equal(t, models.StatusQuoteAccepted, f.caseStatus(t))

	occupied, err := slotOccupancy(f.db, appointment.SlotID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), occupied)

	// The row keeps the client's reason and the cancellation timestamp
	var cancelled models.Appointment
	assert.NoError(t, f.db.First(&cancelled, appointment.ID).Error)
	assert.Equal(t, models.AppointmentCancelled, cancelled.Status)
	assert.Equal(t, "cannot make it", cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestCancelAppointment_DeadlineExceeded(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	// Slot starts in 2h; the default deadline is 24h before the start
	slot, err := CreateOneOffSlot(time.Now().Add(2*time.Hour), time.Now().Add(3*time.Hour), 1)
	assert.NoError(t, err)

	appointment, err := Book(f.repair.ID, slot.ID, f.client)
	assert.NoError(t, err)

	err = CancelAppointment(appointment.ID, f.client, "")
	assert.Equal(t, CodeDeadlineExceeded, CodeOf(err))

	// The appointment and the case are untouched
	assert.Equal(t, models.StatusAppointmentConfirmed, f.caseStatus(t))
}

func TestReschedule_MovesToNewSlot(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	appointment := f.bookAppointment(t)

	newSlot, err := CreateOneOffSlot(time.Now().Add(96*time.Hour), time.Now().Add(98*time.Hour), 1)
	assert.NoError(t, err)

	moved, err := Reschedule(appointment.ID, newSlot.ID, f.client)
	assert.NoError(t, err)
	assert.Equal(t, newSlot.ID, moved.SlotID)
	assert.Equal(t, models.AppointmentRescheduled, moved.Status)

	// The case stays confirmed throughout
	assert.Equal(t, models.StatusAppointmentConfirmed, f.caseStatus(t))
}

func TestReschedule_TargetSlotFull(t *testing.T) {
	f := setupWorkflowFixture(t)
	acceptedCase(t, f)

	appointment := f.bookAppointment(t)

	other := setupSecondAcceptedCase(t, f)
	fullSlot, err := CreateOneOffSlot(time.Now().Add(96*time.Hour), time.Now().Add(98*time.Hour), 1)
	assert.NoError(t, err)
	_, err = Book(other.ID, fullSlot.ID, f.client)
	assert.NoError(t, err)

	_, err = Reschedule(appointment.ID, fullSlot.ID, f.client)
	assert.Equal(t, CodeSlotUnavailable, CodeOf(err))
}
