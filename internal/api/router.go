package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/airyra/taskboard/internal/api/handler"
	"github.com/airyra/taskboard/internal/api/middleware"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/metrics"
	"github.com/airyra/taskboard/internal/store"
)

// Options configures the router. The zero value serves without
// authentication, metrics or request logging.
type Options struct {
	Token    string
	Logger   *log.Logger
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures the HTTP router.
func NewRouter(st *store.Store, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware chain
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.Actor)

	db := st.DB()
	systemHandler := handler.NewSystemHandler(st)
	taskHandler := handler.NewTaskHandler(db)
	transitionHandler := handler.NewTransitionHandler(db)
	auditHandler := handler.NewAuditHandler(db)
	releaseHandler := handler.NewReleaseHandler(db)
	qcHandler := handler.NewQCHandler(db)
	planningHandler := handler.NewPlanningHandler(db)

	// Unauthenticated routes
	r.Get("/health", systemHandler.Health)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerToken(opts.Token))

		r.Route("/projects/department-tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Post("/bulk_create", taskHandler.BulkCreate)
			r.Get("/status_choices", handler.Choices(domain.ValidStatuses, domain.TaskStatus.Label))
			r.Get("/department_choices", handler.Choices(domain.ValidDepartments, domain.Department.Label))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Patch("/", taskHandler.UpdateTask)
				r.Get("/history", auditHandler.GetTaskHistory)

				// Status transitions
				r.Post("/start", transitionHandler.StartTask)
				r.Post("/complete", transitionHandler.CompleteTask)
				r.Post("/uncomplete", transitionHandler.UncompleteTask)
				r.Post("/skip", transitionHandler.SkipTask)
				r.Post("/unskip", transitionHandler.UnskipTask)
				r.Post("/block", transitionHandler.BlockTask)
				r.Post("/unblock", transitionHandler.UnblockTask)
			})
		})

		r.Get("/projects/job-orders/{job_no}", planningHandler.GetJobOrder)

		r.Route("/projects/drawing-releases", func(r chi.Router) {
			r.Post("/", releaseHandler.CreateRelease)
			r.Get("/current", releaseHandler.CurrentRelease)
			r.Post("/{id}/request_revision", releaseHandler.RequestRevision)
			r.Post("/{id}/approve_revision", releaseHandler.ApproveRevision)
			r.Post("/{id}/reject_revision", releaseHandler.RejectRevision)
			r.Post("/{id}/self_revision", releaseHandler.SelfStartRevision)
			r.Post("/{id}/complete_revision", releaseHandler.CompleteRevision)
		})

		r.Post("/planning/items", planningHandler.CreateItem)
		r.Post("/planning/items/{id}/mark_delivered", planningHandler.MarkDelivered)

		r.Route("/quality-control/qc-reviews", func(r chi.Router) {
			r.Get("/", qcHandler.ListReviews)
			r.Post("/submit", qcHandler.SubmitReview)
			r.Post("/{id}/decide", qcHandler.DecideReview)
		})

		r.Get("/audit", auditHandler.QueryAuditLog)
	})

	return r
}
