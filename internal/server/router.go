package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/packhub/packhub/internal/cache"
)

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Store      cache.Store
	ListenPort int
}

const contextKeyRequestID = "_packhub_request_id"

// NewApp builds a Fiber application serving cache blobs with request ids and
// structured error handling. Diagnostics routes are registered separately.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	blobs := &blobHandler{store: opts.Store, logger: opts.Logger}
	app.Head("/blobs/:hex", blobs.serve)
	app.Get("/blobs/:hex", blobs.serve)

	app.Use(func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route_not_found"})
	})

	return app, nil
}

// requestContextMiddleware 为每个请求生成 ID 并写入响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
