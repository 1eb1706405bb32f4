package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mmkdev/account-factory/internal/dto"
	"github.com/mmkdev/account-factory/internal/mailprovider"
	"github.com/mmkdev/account-factory/internal/services"
)

type InboxHandler struct {
	accountService *services.AccountService
}

func NewInboxHandler(accountService *services.AccountService) *InboxHandler {
	return &InboxHandler{accountService: accountService}
}

// List handles GET /accounts/:id/inbox. Provider failures land in the
// response body as an error string; only an unknown account id 404s.
func (h *InboxHandler) List(c *fiber.Ctx) error {
	resp, err := h.accountService.Inbox(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Account not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to check inbox",
		})
	}
	return c.JSON(resp)
}

// Get handles GET /accounts/:id/inbox/:messageID.
func (h *InboxHandler) Get(c *fiber.Ctx) error {
	resp, err := h.accountService.Message(c.Context(), c.Params("id"), c.Params("messageID"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Account not found",
			})
		case errors.Is(err, mailprovider.ErrMessageNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Message not found",
			})
		case err.Error() == "no session data":
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "No session data",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to fetch message",
			})
		}
	}
	return c.JSON(resp)
}
