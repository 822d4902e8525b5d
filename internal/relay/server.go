package relay

import (
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/middleware"
)

type Options struct {
	// JWTSecret enables token checks on /ws when set.
	JWTSecret string
	AdminKey  string
	Logger    zerolog.Logger
	// UpgradeLimit caps websocket upgrades per IP per minute; zero means 60.
	UpgradeLimit int
}

type Server struct {
	app    *fiber.App
	hub    *Hub
	logger zerolog.Logger
}

func NewServer(opts Options) *Server {
	hub := NewHub(opts.Logger)
	app := fiber.New(fiber.Config{
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger(opts.Logger, 500*time.Millisecond))

	healthH := NewHealthHandler(hub)
	app.Get("/health", healthH.Health)

	admin := app.Group("/admin", middleware.AdminKey(opts.AdminKey))
	adminH := NewAdminHandler(hub)
	admin.Get("/stats", adminH.Stats)
	admin.Post("/announce", adminH.Announce)

	wsH := NewWSHandler(hub, opts.JWTSecret, opts.Logger)
	app.Get("/ws", middleware.Throttle(middleware.UpgradeLimit{Max: opts.UpgradeLimit, Window: time.Minute}), wsH.Upgrade)

	go hub.Run()

	return &Server{app: app, hub: hub, logger: opts.Logger}
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("relay listening")
	return s.app.Listen(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("relay listening")
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.app.ShutdownWithTimeout(timeout)
	s.hub.Shutdown()
	return err
}
