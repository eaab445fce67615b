package router

import (
	"database/sql"
	"net/http"

	mem "pet-health-tracker/internal/adapters/storage/memory"
	pg "pet-health-tracker/internal/adapters/storage/postgres"
	"pet-health-tracker/internal/domain/accessgrants"
	"pet-health-tracker/internal/domain/calendar"
	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/domain/metrics"
	"pet-health-tracker/internal/domain/pets"
	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/platform/logger"
	"pet-health-tracker/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Logger logger.Logger
	Clock  clock.Clock

	// RateLimit cero => sin límite.
	RateLimit middleware.RateLimitOptions
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Clock == nil {
		o.Clock = clock.System{}
	}
	return o
}

// Services agrupa los servicios por módulo. main los usa además para
// el job de recordatorios.
type Services struct {
	Pets      *pets.Service
	Grants    *accessgrants.Service
	CareItems *careitems.Service
	Metrics   *metrics.Service
	Calendar  *calendar.Service
}

func NewServices(opts Options) *Services {
	opts = opts.withDefaults()

	var (
		petRepo    pets.Repository
		grantsRepo accessgrants.Repository
		careRepo   careitems.Repository
		metricRepo metrics.Repository
	)
	if opts.DB != nil {
		petRepo = pg.NewPetsRepo(opts.DB)
		grantsRepo = pg.NewAccessGrantsRepo(opts.DB)
		careRepo = pg.NewCareItemsRepo(opts.DB)
		metricRepo = pg.NewMetricsRepo(opts.DB)
	} else {
		petRepo = mem.NewPetRepo()
		grantsRepo = mem.NewAccessGrantsRepo()
		careRepo = mem.NewCareItemRepo()
		metricRepo = mem.NewMetricRepo()
	}

	petsSvc := pets.NewService(petRepo, opts.Clock)
	careSvc := careitems.NewService(careRepo, petsSvc, opts.Clock, opts.Logger.With(map[string]any{"module": "careitems"}))
	metricsSvc := metrics.NewService(metricRepo, opts.Clock)
	petsSvc.UseCareSchedule(careSvc)

	return &Services{
		Pets:      petsSvc,
		Grants:    accessgrants.NewService(grantsRepo, opts.Clock, opts.Logger.With(map[string]any{"module": "accessgrants"})),
		CareItems: careSvc,
		Metrics:   metricsSvc,
		Calendar:  calendar.NewService(careSvc, metricsSvc, opts.Clock),
	}
}

// NewHandler monta middlewares y rutas sobre servicios ya construidos.
func NewHandler(svcs *Services, opts Options) http.Handler {
	opts = opts.withDefaults()

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(opts.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier, opts.Logger))
	r.Use(middleware.RateLimit(opts.RateLimit))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	pets.RegisterRoutes(r, svcs.Pets, svcs.Grants)
	accessgrants.RegisterRoutes(r, svcs.Grants, svcs.Pets)
	careitems.RegisterRoutes(r, svcs.CareItems, svcs.Pets, svcs.Grants)
	metrics.RegisterRoutes(r, svcs.Metrics, svcs.Pets, svcs.Grants)
	calendar.RegisterRoutes(r, svcs.Calendar, svcs.Pets, svcs.Grants)

	return r
}

func NewRouter(opts Options) http.Handler {
	return NewHandler(NewServices(opts), opts)
}
