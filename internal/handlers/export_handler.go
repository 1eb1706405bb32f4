package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mmkdev/account-factory/internal/dto"
	"github.com/mmkdev/account-factory/internal/services"
)

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

func (h *ExportHandler) TXT(c *fiber.Ctx) error {
	return h.download(c, "text/plain; charset=utf-8", h.exportService.TXT)
}

func (h *ExportHandler) CSV(c *fiber.Ctx) error {
	return h.download(c, "text/csv; charset=utf-8", h.exportService.CSV)
}

func (h *ExportHandler) XLSX(c *fiber.Ctx) error {
	return h.download(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", h.exportService.XLSX)
}

func (h *ExportHandler) download(c *fiber.Ctx, contentType string, render func(context.Context) ([]byte, string, error)) error {
	content, filename, err := render(c.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoAccounts) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "No accounts",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Export failed",
		})
	}

	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(content)
}
