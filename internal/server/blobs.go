package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/logging"
)

// blobHandler 将缓存条目按主摘要直接流式返回，不做任何上游回源。
type blobHandler struct {
	store  cache.Store
	logger *logrus.Logger
}

func (h *blobHandler) serve(c fiber.Ctx) error {
	started := time.Now()
	requestID := RequestID(c)
	raw := c.Params("hex")

	key, err := cache.ParseKey(raw)
	if err != nil {
		h.logResult(c, raw, requestID, fiber.StatusBadRequest, 0, started, err)
		return writeError(c, fiber.StatusBadRequest, "invalid_key")
	}

	result, err := h.store.Open(c.Context(), key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			h.logResult(c, raw, requestID, fiber.StatusNotFound, 0, started, nil)
			return writeError(c, fiber.StatusNotFound, "blob_not_found")
		}
		h.logResult(c, raw, requestID, fiber.StatusInternalServerError, 0, started, err)
		return writeError(c, fiber.StatusInternalServerError, "cache_read_failed")
	}

	c.Set("Content-Type", "application/octet-stream")
	c.Set("ETag", fmt.Sprintf("%q", key.String()))
	c.Set("Cache-Control", "public, max-age=31536000, immutable")
	c.Response().Header.SetContentLength(int(result.Entry.SizeBytes))
	c.Status(fiber.StatusOK)

	if c.Method() == http.MethodHead {
		result.Reader.Close()
		h.logResult(c, raw, requestID, fiber.StatusOK, 0, started, nil)
		return nil
	}

	n, err := io.Copy(c.Response().BodyWriter(), result.Reader)
	result.Reader.Close()
	h.logResult(c, raw, requestID, fiber.StatusOK, n, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("read cache failed: %v", err))
	}
	return nil
}

func (h *blobHandler) logResult(c fiber.Ctx, key, requestID string, status int, bytes int64, started time.Time, err error) {
	fields := logging.Merge(logging.RequestFields(c.Method(), key, requestID), logrus.Fields{
		"status":     status,
		"bytes":      bytes,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Warn("blob_request_failed")
		return
	}
	h.logger.WithFields(fields).Info("blob_request")
}

func writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}
