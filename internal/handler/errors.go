package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/tavolo-pos/api/internal/service"
)

var validationErrors = []error{
	service.ErrEmptyItems,
	service.ErrInvalidOrderType,
	service.ErrInvalidQuantity,
	service.ErrInvalidMenuItemID,
	service.ErrInvalidModifierID,
	service.ErrInvalidTableID,
	service.ErrInvalidCustomerID,
	service.ErrInvalidTipAmount,
	service.ErrInvalidStatus,
	service.ErrInvalidAmount,
	service.ErrInvalidModifierSelection,
}

var notFoundErrors = []error{
	service.ErrOrderNotFound,
	service.ErrOrderItemNotFound,
	service.ErrMenuItemNotFound,
	service.ErrModifierNotFound,
	service.ErrTableNotFound,
	service.ErrCustomerNotFound,
	service.ErrVoucherNotFound,
	service.ErrGiftCardNotFound,
}

var conflictErrors = []error{
	service.ErrMenuItemUnavailable,
	service.ErrModifierUnavailable,
	service.ErrInvalidStateTransition,
	service.ErrOrderNotEditable,
	service.ErrItemRemoveNotPending,
	service.ErrLastOrderItem,
	service.ErrVoucherAlreadyApplied,
	service.ErrVoucherOnOrder,
	service.ErrVoucherInactive,
	service.ErrVoucherNotStarted,
	service.ErrVoucherExpired,
	service.ErrVoucherExhausted,
	service.ErrMinimumPurchaseNotMet,
	service.ErrVoucherExceedsSubtotal,
	service.ErrNoVoucherApplied,
	service.ErrGiftCardInactive,
	service.ErrGiftCardExpired,
	service.ErrInsufficientBalance,
	service.ErrOrderNumberConflict,
	service.ErrConcurrentModification,
}

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError maps a service error to its HTTP status. Unknown errors
// are logged and reported as a bare 500 so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case matchesAny(err, validationErrors):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case matchesAny(err, notFoundErrors):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case matchesAny(err, conflictErrors):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrKitchenRoleRequired):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrStoreTimeout):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
