package api

import (
	"log/slog"
	"net/http"
	"time"

	"microfin-office/internal/api/handler"
	mw "microfin-office/internal/api/middleware"
	"microfin-office/internal/config"
	"microfin-office/internal/domain/branch"
	"microfin-office/internal/domain/expense"
	"microfin-office/internal/domain/group"
	"microfin-office/internal/domain/loan"
	"microfin-office/internal/domain/member"
	"microfin-office/internal/domain/report"
	"microfin-office/internal/domain/user"

	_ "microfin-office/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Branch  branch.Service
	Member  member.Service
	Group   group.Service
	Loan    loan.Service
	Expense expense.Service
	User    user.Service
	Report  report.Service
}

func SetupRouter(services Services, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, services.User, cfg, logger)
	setupBranchRoutes(router, services.Branch, cfg, logger)
	setupMemberRoutes(router, services.Member, cfg, logger)
	setupGroupRoutes(router, services.Group, cfg, logger)
	setupLoanRoutes(router, services.Loan, cfg, logger)
	setupExpenseRoutes(router, services.Expense, cfg, logger)
	setupUserRoutes(router, services.User, cfg, logger)
	setupReportRoutes(router, services.Report, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, svc user.Service, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(svc, cfg.Server.Auth, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
	})
}

func setupBranchRoutes(router *chi.Mux, svc branch.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewBranchHandler(svc, logger)

	router.Route("/branches", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/", h.ListBranches)
		r.Route("/{branchID}", func(r chi.Router) {
			r.Get("/", h.GetBranch)
		})

		// Branch management is reserved for admins.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(logger, user.RoleAdmin))
			r.Post("/", h.CreateBranch)
			r.Put("/{branchID}", h.UpdateBranch)
			r.Delete("/{branchID}", h.DeactivateBranch)
			r.Put("/{branchID}/reactivate", h.ReactivateBranch)
		})
	})
}

func setupMemberRoutes(router *chi.Mux, svc member.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewMemberHandler(svc, logger)

	router.Route("/members", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateMember)
		r.Get("/", h.ListMembers)
		r.Get("/by-loan/{loanID}", h.FindMemberByLoan)
		r.Route("/{memberID}", func(r chi.Router) {
			r.Get("/", h.GetMember)
			r.Delete("/", h.DeactivateMember)
			r.Put("/contact", h.UpdateMemberContact)
			r.Put("/group", h.AssignMemberToGroup)
			r.Put("/loan", h.AssignLoanToMember)
			r.Put("/overdue", h.UpdateOverdueStanding)
			r.Put("/reactivate", h.ReactivateMember)
		})
	})
}

func setupGroupRoutes(router *chi.Mux, svc group.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewGroupHandler(svc, logger)

	router.Route("/groups", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateGroup)
		r.Get("/", h.ListGroups)
		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", h.GetGroup)
			r.Put("/name", h.RenameGroup)
			r.Get("/members", h.GetGroupRoster)
		})
	})
}

func setupLoanRoutes(router *chi.Mux, svc loan.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewLoanHandler(svc, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.IssueLoan)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", h.GetLoan)
			r.Get("/schedule", h.GetSchedule)
			r.Get("/outstanding", h.GetOutstanding)
			r.Get("/overdue", h.IsOverdue)
			r.Post("/payments", h.RecordPayment)
			r.Get("/payments", h.ListPayments)
		})
	})
}

func setupExpenseRoutes(router *chi.Mux, svc expense.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewExpenseHandler(svc, logger)

	router.Route("/expenses", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.RecordExpense)
		r.Get("/", h.ListExpenses)
		r.Get("/totals", h.GetCategoryTotals)
		r.Route("/{expenseID}", func(r chi.Router) {
			r.Get("/", h.GetExpense)
			r.Delete("/", h.DeleteExpense)
		})
	})
}

func setupUserRoutes(router *chi.Mux, svc user.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewUserHandler(svc, logger)

	// Account administration is admin-only.
	router.Route("/users", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Use(mw.RequireRole(logger, user.RoleAdmin))
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Delete("/", h.DeactivateUser)
			r.Put("/password", h.ChangePassword)
			r.Put("/reactivate", h.ReactivateUser)
			r.Delete("/permanent", h.DeleteUser)
		})
	})
}

func setupReportRoutes(router *chi.Mux, svc report.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewReportHandler(svc, logger)

	router.Route("/reports", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Use(mw.RequireRole(logger, user.RoleAdmin, user.RoleBranchManager))
		r.Get("/portfolio", h.GetPortfolioSummary)
		r.Get("/branches/{branchID}", h.GetBranchSummary)
	})
}
