package server

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"partscatalog/sitemap/internal/config"
	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/sitemap"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	contentTypeXML = "application/xml; charset=utf-8"
	cacheControl   = "public, max-age=3600"
)

// Renderer produces the documents served on demand.
type Renderer interface {
	RenderOnDemandIndex(ctx context.Context, w io.Writer) error
	RenderStatic(ctx context.Context, w io.Writer) error
	RenderCategories(ctx context.Context, w io.Writer) error
	RenderSample(ctx context.Context, w io.Writer) error
	RenderManufacturer(ctx context.Context, w io.Writer, slug string) error
	RenderCategoryPage(ctx context.Context, w io.Writer, slug string, page int) error
}

// Server serves sitemap documents rendered per request.
type Server struct {
	app      *fiber.App
	renderer Renderer
	addr     string
	timeout  time.Duration
}

func New(cfg config.ServerConfig, renderer Renderer) *Server {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		renderer: renderer,
		addr:     cfg.Addr(),
		timeout:  timeout,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "partscatalog-sitemap",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recordResponse)
	s.app.Use(recover.New())

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	s.app.Get("/"+sitemap.IndexDocument, s.serve(renderer.RenderOnDemandIndex))
	s.app.Get("/"+sitemap.MainDocument, s.serve(renderer.RenderStatic))
	s.app.Get("/"+sitemap.CategoriesDocument, s.serve(renderer.RenderCategories))
	s.app.Get("/"+sitemap.SampleDocument, s.serve(renderer.RenderSample))
	s.app.Get("/:name", s.document)

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	log.Infof("🌐 Serving sitemaps on %s", s.addr)
	if err := s.app.Listen(s.addr); err != nil {
		return fmt.Errorf("failed to serve on %s: %w", s.addr, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type renderFunc func(ctx context.Context, w io.Writer) error

// serve renders into memory under the request timeout and only then writes
// the response, so a failed render never produces a partial 200.
func (s *Server) serve(render renderFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
		defer cancel()

		var buf bytes.Buffer
		if err := render(ctx, &buf); err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, contentTypeXML)
		c.Set(fiber.HeaderCacheControl, cacheControl)
		return c.Status(fiber.StatusOK).Send(buf.Bytes())
	}
}

// document serves /<slug>.xml[?page=N]. A manufacturer slug wins over a
// category with the same slug; manufacturer documents have a single page.
func (s *Server) document(c *fiber.Ctx) error {
	name := c.Params("name")
	slug, ok := strings.CutSuffix(name, ".xml")
	if !ok || slug == "" {
		return fmt.Errorf("document %q: %w", name, domain.ErrNotFound)
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fmt.Errorf("page %q of %q: %w", raw, name, domain.ErrNotFound)
		}
		page = n
	}

	return s.serve(func(ctx context.Context, w io.Writer) error {
		err := s.renderer.RenderManufacturer(ctx, w, slug)
		if err == nil && page > 1 {
			return fmt.Errorf("manufacturer %q page %d: %w", slug, page, domain.ErrNotFound)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return s.renderer.RenderCategoryPage(ctx, w, slug, page)
	})(c)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
		message = "sitemap not found"
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		log.Errorf("❌ %s %s failed: %v", c.Method(), c.OriginalURL(), err)
	} else {
		log.Debugf("%s %s: %v", c.Method(), c.OriginalURL(), err)
	}

	c.Set(fiber.HeaderContentType, contentTypeXML)
	return c.Status(code).Send(errorBody(code, message))
}

func errorBody(code int, message string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<error><code>")
	b.WriteString(strconv.Itoa(code))
	b.WriteString("</code><message>")
	xml.EscapeText(&b, []byte(message))
	b.WriteString("</message></error>\n")
	return b.Bytes()
}
