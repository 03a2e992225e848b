package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guildtools/ticketbot/internal/observability"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

func newTestApp(metrics *observability.Metrics) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	return app
}

func TestErrorStatusReachesRequestMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newTestApp(metrics)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", nil)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
	if got := metrics.RequestCount("/missing", "GET", fiber.StatusNotFound); got != 1 {
		t.Errorf("request count for 404 = %d, want 1", got)
	}
	if got := metrics.RequestCount("/missing", "GET", fiber.StatusOK); got != 0 {
		t.Errorf("request count for 200 = %d, want 0", got)
	}
	if got := metrics.ErrorCount("/missing", "GET", apperrors.CodeNotFound); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
}

func TestRateLimitedResponseCarriesRetryAfter(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newTestApp(metrics)
	app.Post("/limited", func(c *fiber.Ctx) error {
		return apperrors.NewRateLimited(240 * time.Second)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/limited", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusTooManyRequests)
	}
	if got := resp.Header.Get(fiber.HeaderRetryAfter); got != "240" {
		t.Errorf("Retry-After = %q, want %q", got, "240")
	}
}

func TestPanicBecomesInternalError(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newTestApp(metrics)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusInternalServerError)
	}
}
