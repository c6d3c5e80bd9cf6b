package routes

import (
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/version"
)

// RegisterDiagnosticsRoutes 暴露 /-/status 与 /-/blobs/:hex 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, store cache.Store, started time.Time) {
	if app == nil || store == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		return c.JSON(statusPayload{
			Version:       version.Full(),
			CacheRoot:     store.Root(),
			StartedAt:     started.UTC().Format(time.RFC3339),
			UptimeSeconds: int64(time.Since(started).Seconds()),
		})
	})

	app.Get("/-/blobs/:hex", func(c fiber.Ctx) error {
		raw := strings.ToLower(strings.TrimSpace(c.Params("hex")))
		key, err := cache.ParseKey(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_key"})
		}
		result, err := store.Open(c.Context(), key)
		if err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "blob_not_found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_read_failed"})
		}
		result.Reader.Close()
		return c.JSON(encodeBlob(result.Entry))
	})
}

type statusPayload struct {
	Version       string `json:"version"`
	CacheRoot     string `json:"cache_root"`
	StartedAt     string `json:"started_at"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type blobPayload struct {
	Key       string `json:"key"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
	ModTime   string `json:"mod_time"`
}

func encodeBlob(entry cache.Entry) blobPayload {
	return blobPayload{
		Key:       entry.Key.String(),
		Path:      entry.FilePath,
		SizeBytes: entry.SizeBytes,
		Size:      humanize.Bytes(uint64(entry.SizeBytes)),
		ModTime:   entry.ModTime.UTC().Format(time.RFC3339),
	}
}
