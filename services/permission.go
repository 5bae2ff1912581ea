package services

import "github.com/aroussel/garage-api/models"

// Action identifies an operation gated by the permission predicate
type Action string

const (
	ActionCreateCase      Action = "case:create"
	ActionViewCase        Action = "case:view"
	ActionSelectFaults    Action = "case:select_faults"
	ActionAdvanceStatus   Action = "case:advance_status"
	ActionComputeQuote    Action = "quote:compute"
	ActionDecideQuote     Action = "quote:decide" // accept or refuse
	ActionViewQuote       Action = "quote:view"
	ActionBookAppointment Action = "appointment:book"
	ActionGenerateInvoice Action = "invoice:generate"
	ActionRecordPayment   Action = "invoice:record_payment"
	ActionViewInvoice     Action = "invoice:view"
	ActionManageCatalog   Action = "catalog:manage"
	ActionManageSettings  Action = "settings:manage"
	ActionManageSlots     Action = "slots:manage"
	ActionManageRoles     Action = "users:manage_roles"
)

// Can is the capability check performed before every engine operation.
// ownerID is the client owning the target entity (0 when the action has
// no owner, e.g. catalog management). Role checks come first: clients
// only ever act on their own cases, managers run the workflow, admins
// configure the system.
func Can(actor *models.User, action Action, ownerID uint) bool {
	if actor == nil {
		return false
	}

	switch action {
	case ActionCreateCase, ActionDecideQuote, ActionBookAppointment:
		return actor.IsClient() && actor.ID == ownerID

	case ActionSelectFaults:
		return (actor.IsClient() && actor.ID == ownerID) || actor.IsStaff()

	case ActionViewCase, ActionViewQuote, ActionViewInvoice:
		if actor.IsStaff() {
			return true
		}
		return actor.IsClient() && actor.ID == ownerID

	case ActionComputeQuote, ActionAdvanceStatus, ActionGenerateInvoice, ActionRecordPayment:
		return actor.IsStaff()

	case ActionManageCatalog, ActionManageSettings, ActionManageSlots, ActionManageRoles:
		return actor.IsAdmin()
	}

	return false
}
