package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/mmkdev/account-factory/internal/dto"
	"github.com/mmkdev/account-factory/internal/services"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateBatch handles POST /accounts/create - accepts the batch request and
// returns the job id immediately while the worker runs in the background.
func (h *AccountHandler) CreateBatch(c *fiber.Ctx) error {
	var req dto.CreateAccountsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	job, err := h.accountService.CreateBatch(c.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuantity) || errors.Is(err, services.ErrInvalidSeparator) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create job",
		})
	}

	return c.JSON(dto.CreateAccountsResponse{
		JobID:         job.ID.String(),
		Message:       fmt.Sprintf("Started creating %d accounts with %s", job.Total, job.EmailProvider),
		Status:        job.Status,
		EmailProvider: job.EmailProvider,
	})
}

// JobStatus handles GET /accounts/job/:jobID.
func (h *AccountHandler) JobStatus(c *fiber.Ctx) error {
	status, err := h.accountService.JobStatus(c.Context(), c.Params("jobID"))
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch job",
		})
	}
	return c.JSON(status)
}

// List handles GET /accounts.
func (h *AccountHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accountService.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch accounts",
		})
	}
	return c.JSON(accounts)
}

// Delete handles DELETE /accounts/:id.
func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	err := h.accountService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Account not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete account",
		})
	}
	return c.JSON(dto.DeleteResponse{Message: "Account deleted successfully"})
}

// DeleteAll handles DELETE /accounts.
func (h *AccountHandler) DeleteAll(c *fiber.Ctx) error {
	deleted, err := h.accountService.DeleteAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete accounts",
		})
	}
	return c.JSON(dto.DeleteResponse{
		Message:      fmt.Sprintf("Deleted %d accounts", deleted),
		DeletedCount: deleted,
	})
}

// DeleteMultiple handles POST /accounts/delete-multiple with a JSON array
// of account ids as the body.
func (h *AccountHandler) DeleteMultiple(c *fiber.Ctx) error {
	var ids []string
	if err := c.BodyParser(&ids); err != nil || len(ids) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "No account IDs provided",
		})
	}

	deleted, err := h.accountService.DeleteMultiple(c.Context(), ids)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "No accounts found or deleted",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete accounts",
		})
	}
	return c.JSON(dto.DeleteResponse{
		Message:      fmt.Sprintf("Deleted %d accounts successfully", deleted),
		DeletedCount: deleted,
	})
}

// VerifyLogin handles POST /accounts/:id/verify-login.
func (h *AccountHandler) VerifyLogin(c *fiber.Ctx) error {
	resp, err := h.accountService.VerifyLogin(c.Context(), c.Params("id"))
	if err != nil {
		return h.accountError(c, err)
	}
	return c.JSON(resp)
}

// UpdateStatus handles PUT /accounts/:id/status - forward-only transitions.
func (h *AccountHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Status is required",
		})
	}

	account, err := h.accountService.UpdateStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return h.accountError(c, err)
	}
	return c.JSON(account)
}

// Regenerate handles PUT /accounts/:id/regenerate.
func (h *AccountHandler) Regenerate(c *fiber.Ctx) error {
	resp, err := h.accountService.Regenerate(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrRateLimited) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Rate limited. Please wait before regenerating.",
			})
		}
		return h.accountError(c, err)
	}
	return c.JSON(resp)
}

// RateLimitStatus handles GET /rate-limit-status.
func (h *AccountHandler) RateLimitStatus(c *fiber.Ctx) error {
	return c.JSON(h.accountService.RateLimitStatus())
}

func (h *AccountHandler) accountError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Account not found",
		})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
}
