package errors

import (
	stderrors "errors"
	"fmt"
	"log"

	"event-ticketing/booking"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeInvalidInput          = string(booking.InvalidInput)
	CodeNotFound              = string(booking.NotFound)
	CodeDuplicateBooking      = string(booking.DuplicateBooking)
	CodeInsufficientInventory = string(booking.InsufficientInventory)
	CodeStorageFailure        = string(booking.StorageFailure)
	CodeUnauthorized          = "unauthorized"
	CodeForbidden             = "forbidden"
	CodeConflict              = "conflict"
)

func RaiseError(context *fiber.Ctx, status int, code string, message string, data interface{}) error {
	return context.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"code":    code,
		"data":    data})
}

func RaisePermissionsError(context *fiber.Ctx, data interface{}) error {
	return RaiseError(context, fiber.StatusForbidden, CodeForbidden, "lack of permissions", data)
}

func RaiseUnauthorizedError(context *fiber.Ctx, message string) error {
	return RaiseError(context, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

// RaiseInternalServerError never echoes err to the client.
func RaiseInternalServerError(context *fiber.Ctx, err error) error {
	log.Printf("%v %v: %v", context.Method(), context.Path(), err)
	return RaiseError(context, fiber.StatusInternalServerError, CodeStorageFailure, "internal error", nil)
}

func RaiseBadRequestError(context *fiber.Ctx, data interface{}) error {
	return RaiseError(context, fiber.StatusBadRequest, CodeInvalidInput, "bad request", data)
}

func RaiseNotFoundError(context *fiber.Ctx, data interface{}) error {
	return RaiseError(context, fiber.StatusNotFound, CodeNotFound, "resource not found", data)
}

// RaiseBookingError answers with the status and code of a booking failure.
func RaiseBookingError(context *fiber.Ctx, err error) error {
	var bookingErr *booking.Error
	if !stderrors.As(err, &bookingErr) {
		return RaiseInternalServerError(context, err)
	}

	switch bookingErr.Kind {
	case booking.InvalidInput:
		return RaiseError(context, fiber.StatusBadRequest, CodeInvalidInput, bookingErr.Message, nil)
	case booking.NotFound:
		return RaiseError(context, fiber.StatusNotFound, CodeNotFound, bookingErr.Message, nil)
	case booking.DuplicateBooking:
		return RaiseError(context, fiber.StatusBadRequest, CodeDuplicateBooking, bookingErr.Message, nil)
	case booking.InsufficientInventory:
		return RaiseError(context, fiber.StatusBadRequest, CodeInsufficientInventory, bookingErr.Message,
			fiber.Map{"remaining": bookingErr.Remaining})
	default:
		return RaiseError(context, fiber.StatusInternalServerError, CodeStorageFailure, "internal error",
			fmt.Sprintf("request %v failed, retry later", context.Locals("requestid")))
	}
}
