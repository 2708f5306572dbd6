package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/CodedInternet/golift/logger"
	. "github.com/CodedInternet/golift/onboard"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"LIFT_DEVICE_UUID" envDefault:"DEV"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	CONFIG     string `env:"LIFT_CONFIG" envDefault:"./lift.yaml"`
	DB_PATH    string `env:"LIFT_DB" envDefault:"./tmp/dev.db"`
	LOG_FILE   string `env:"LIFT_LOG_FILE"`
	HTMLDIR    string `env:"HTMLDIR"`
	DB         *storm.DB
	Controller *Controller
}

var (
	ENV = new(EnvConfig)
)

func main() {
	listen := flag.String("port", "0.0.0.0:8080", "Specify the ip:port to listen on")
	simulated := flag.Bool("sim", false, "Force the simulated driver")
	interactive := flag.Bool("shell", true, "Start the development shell on stdin")
	flag.Parse()

	if err := env.Parse(ENV); err != nil {
		panic(err)
	}

	level := logger.InfoLevel
	if ENV.DEBUG {
		level = logger.DebugLevel
	}
	logger.Init(logger.Options{
		Level:      level,
		File:       ENV.LOG_FILE,
		Color:      true,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	})
	defer logger.Sync()

	db, err := openDb(ENV.DB_PATH)
	if err != nil {
		logger.Fatalf("unable to open database %s: %v", ENV.DB_PATH, err)
	}
	ENV.DB = db
	defer ENV.DB.Close()

	config, err := LoadConfig(ENV.CONFIG)
	if err != nil {
		if !os.IsNotExist(err) || !*simulated {
			logger.Fatalf("unable to load lift config %s: %v", ENV.CONFIG, err)
		}
		logger.Warnf("no lift config at %s, using defaults", ENV.CONFIG)
		config = DefaultLiftConfig()
	}
	if *simulated {
		config.Hardware.Driver = DriverSim
	}

	device, err := NewDevice(config)
	if err != nil {
		logger.Fatalf("unable to initialize lift: %v", err)
	}
	defer device.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if device.Sim != nil {
		go device.Sim.Run(ctx)
	}

	ENV.Controller = NewController(device.Lift)
	stopped := make(chan error, 1)
	go func() { stopped <- ENV.Controller.Run(ctx) }()

	if *interactive {
		newShell(ctx, ENV.Controller).Start()
	}

	srv := &http.Server{Addr: *listen, Handler: newRouter(ENV.Controller)}
	go func() {
		logger.Infof("listening on %s", *listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	srv.Shutdown(context.Background())
	<-stopped
	logger.Infof("lift stopped")
}

func newRouter(controller *Controller) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)

		r.Group(func(r chi.Router) {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)

			r.Get("/refresh_token", JWTRefresh)
			r.Mount("/lift", liftRoutes(controller))
		})
	})

	r.Route("/ws", func(r chi.Router) {
		if !ENV.DEBUG {
			r.Use(ValidateJWT)
		} else {
			logger.Warnf("running in debug mode, websocket authentication disabled")
		}

		r.Get("/jog", JogHandler(controller))
	})

	if ENV.HTMLDIR != "" {
		FileServer(r, "/", http.Dir(ENV.HTMLDIR))
	}

	return r
}

// requestLogger logs each request through the package logger with its request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debugw("http request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
		)
	})
}

func openDb(dbFile string) (db *storm.DB, err error) {
	dir := filepath.Dir(dbFile)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return
	}

	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}

	return
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))
}
