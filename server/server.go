// Package server serves the docchat web UI and its chat API.
package server

import (
	_ "embed"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/docchat/pkg/catalog"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/llm"
	"github.com/papercomputeco/docchat/pkg/merkle"
)

//go:embed ui/index.html
var indexHTML []byte

// Server is the chat web application. Conversation state lives in per-browser
// sessions; every completed turn is also written to the transcript archive.
type Server struct {
	config    Config
	processor *conversation.Processor
	catalog   *catalog.Catalog
	storer    merkle.Storer
	sessions  *sessionStore
	limiter   *rate.Limiter
	logger    *zap.Logger
	server    *fiber.App
}

// New creates a Server.
func New(config Config, processor *conversation.Processor, models *catalog.Catalog, storer merkle.Storer, logger *zap.Logger) (*Server, error) {
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaultSessionTTL
	}
	if config.BodyLimit <= 0 {
		config.BodyLimit = defaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config:    config,
		processor: processor,
		catalog:   models,
		storer:    storer,
		sessions:  newSessionStore(config.SessionTTL),
		logger:    logger,
		server:    app,
	}

	if config.TurnsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(config.TurnsPerMinute)/60), config.TurnsPerMinute)
	}

	s.routes(app)
	return s, nil
}

func (s *Server) routes(app *fiber.App) {
	app.Get("/", s.handleIndex)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/models", s.handleModels)
	api.Get("/transcript", s.handleTranscript)
	api.Post("/chat", s.handleChat)
	api.Post("/chat/stream", s.handleChatStream)
	api.Post("/reset", s.handleReset)

	// Transcript archive endpoints
	app.Get("/dag/stats", s.handleDAGStats)
	app.Get("/dag/node/:hash", s.handleGetNode)
	app.Get("/dag/history", s.handleListHistories)
	app.Get("/dag/history/:hash", s.handleGetHistory)
	app.Post("/dag/nodes", s.handlePostNodes)
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting chat server", zap.String("listen", s.config.ListenAddr))

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting chat server", zap.String("listen", ln.Addr().String()))

	return s.server.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

// Close releases the archive.
func (s *Server) Close() error {
	return s.storer.Close()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// errorHandler renders every handler error as an llm.ErrorResponse.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	return c.Status(code).JSON(llm.ErrorResponse{Error: msg})
}
