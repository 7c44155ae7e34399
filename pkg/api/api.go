// Package api implements the REST API of the calculator server.
package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/five-function-calculator/pkg/calc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Tracelog is the part of trace.Tracelog the API exposes.
type Tracelog interface {
	trace.Sink
	Lines() []string
	Enable()
	Disable()
	Clear()
}

// maxBatch bounds the number of expressions in one batch request.
const maxBatch = 1000

// Server is the HTTP API server.
type Server struct {
	app   *fiber.App
	calc  *calc.Calculator
	trace Tracelog
	store *store.Store
	log   zerolog.Logger
}

// New creates a new API server.
func New(tl Tracelog, s *store.Store, logger zerolog.Logger) *Server {
	srv := &Server{
		calc:  calc.New(tl),
		trace: tl,
		store: s,
		log:   logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(srv.logRequests)

	app.Post("/v1/evaluate", srv.evaluate)
	app.Post("/v1/evaluate\\:batch", srv.evaluateBatch)

	app.Get("/v1/trace", srv.getTrace)
	app.Post("/v1/trace\\:enable", srv.enableTrace)
	app.Post("/v1/trace\\:disable", srv.disableTrace)
	app.Delete("/v1/trace", srv.clearTrace)

	app.Post("/v1/sessions", srv.createSession)
	app.Get("/v1/sessions", srv.listSessions)
	app.Get("/v1/sessions/:id", srv.getSession)
	app.Delete("/v1/sessions/:id", srv.deleteSession)
	app.Post("/v1/sessions/:id\\:press", srv.pressKeys)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("request")
	return err
}

func errorJSON(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// --- Evaluation Handlers ---

type evaluateRequest struct {
	Expression *string `json:"expression"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Expression == nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "expression is required")
	}
	return c.JSON(s.result(*req.Expression))
}

type batchRequest struct {
	Expressions []string `json:"expressions"`
}

func (s *Server) evaluateBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Expressions) > maxBatch {
		return errorJSON(c, 400, "INVALID_ARGUMENT",
			fmt.Sprintf("at most %d expressions per batch, got %d", maxBatch, len(req.Expressions)))
	}

	results := make([]fiber.Map, 0, len(req.Expressions))
	for _, expr := range req.Expressions {
		results = append(results, s.result(expr))
	}
	return c.JSON(fiber.Map{"results": results})
}

func (s *Server) result(expression string) fiber.Map {
	result := s.calc.Calculate(expression)
	return fiber.Map{
		"expression": expression,
		"result":     result,
		"outcome":    calc.Classify(result),
	}
}

// --- Trace Handlers ---

func (s *Server) getTrace(c *fiber.Ctx) error {
	return c.JSON(s.traceJSON())
}

func (s *Server) enableTrace(c *fiber.Ctx) error {
	s.trace.Enable()
	s.log.Info().Msg("trace enabled")
	return c.JSON(s.traceJSON())
}

func (s *Server) disableTrace(c *fiber.Ctx) error {
	s.trace.Disable()
	s.log.Info().Msg("trace disabled")
	return c.JSON(s.traceJSON())
}

func (s *Server) clearTrace(c *fiber.Ctx) error {
	s.trace.Clear()
	return c.JSON(s.traceJSON())
}

func (s *Server) traceJSON() fiber.Map {
	return fiber.Map{
		"enabled": s.trace.Enabled(),
		"lines":   s.trace.Lines(),
	}
}

// --- Session Handlers ---

func (s *Server) createSession(c *fiber.Ctx) error {
	sess := s.store.CreateSession()
	return c.Status(201).JSON(sess)
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": s.store.ListSessions()})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.store.GetSession(c.Params("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(sess)
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.store.DeleteSession(c.Params("id")); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(fiber.Map{})
}

type pressRequest struct {
	Keys string `json:"keys"`
}

func (s *Server) pressKeys(c *fiber.Ctx) error {
	var req pressRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Keys == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "keys is required")
	}

	sess, err := s.store.PressKeys(c.Params("id"), req.Keys)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(sess)
}

func (s *Server) storeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	}
	s.log.Error().Err(err).Str("path", c.Path()).Msg("store error")
	return errorJSON(c, 500, "INTERNAL", err.Error())
}
