package service

import (
	"errors"

	"storefront/internal/store"
)

// ActionResult is the uniform outcome of a workflow-level operation.
// Precondition failures carry a RedirectTo hint; Data carries an external
// provider reference where one exists. Messages are always user-safe.
type ActionResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Data       string `json:"data,omitempty"`
}

func success(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

func successRedirect(message, redirectTo string) ActionResult {
	return ActionResult{Success: true, Message: message, RedirectTo: redirectTo}
}

func failure(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}

func failureRedirect(message, redirectTo string) ActionResult {
	return ActionResult{Success: false, Message: message, RedirectTo: redirectTo}
}

// formatError maps an internal error to a message safe to show a user.
// Store sentinels get specific wording; anything else stays generic so
// internals never leak.
func formatError(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, store.ErrAlreadyPaid):
		return "Order is already paid"
	case errors.Is(err, store.ErrAlreadyDelivered):
		return "Order is already delivered"
	case errors.Is(err, store.ErrNotPaid):
		return "Order is not paid"
	case errors.Is(err, store.ErrCartConflict):
		return "Your cart changed during checkout, please try again"
	default:
		return "Something went wrong, please try again"
	}
}
