package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HTTPResponses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sitemap_http_responses_total",
		Help: "HTTP responses served, by route and status code",
	},
	[]string{"route", "status"},
)

// recordResponse counts every response. Errors are turned into responses
// here so the final status code is known.
func recordResponse(c *fiber.Ctx) error {
	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	HTTPResponses.WithLabelValues(c.Route().Path, strconv.Itoa(c.Response().StatusCode())).Inc()
	return nil
}
