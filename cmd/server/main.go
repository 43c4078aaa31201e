package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	api "github.com/edumark/cbt-server/internal/api/http"
	"github.com/edumark/cbt-server/internal/audit"
	auth "github.com/edumark/cbt-server/internal/auth/middleware"
	"github.com/edumark/cbt-server/internal/cache"
	"github.com/edumark/cbt-server/internal/config"
	"github.com/edumark/cbt-server/internal/db"
	"github.com/edumark/cbt-server/internal/exam"
	"github.com/edumark/cbt-server/internal/grading"
	"github.com/edumark/cbt-server/internal/rbac"
	"github.com/edumark/cbt-server/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log := logrus.New()
	if cfg.Mode == config.ModeProd {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver, grading.NewDefaultGrader())
	events := audit.NewEventRepo(dbh)

	// --- Optional question-bank cache ---
	var bank cache.BankCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, bank cache disabled")
		} else {
			bank = cache.NewBankCache(rdb)
			log.WithField("addr", cfg.RedisAddr).Info("bank cache enabled")
		}
	}

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	// cors treats an empty AllowedOrigins as allow-all, so cross-origin
	// access is off entirely until origins are configured
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Post("/auth/register", api.RegisterHandler(dbh))
	r.Post("/auth/login", api.LoginHandler(dbh, authSvc))

	bs, err := storage.NewFSStore(cfg.AssetBasePath)
	if err != nil {
		log.WithError(err).Fatal("asset store")
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeDev))

		pr.With(rbac.Require("user:change_password")).
			Post("/auth/change-password", api.ChangePasswordHandler(dbh))

		pr.With(rbac.Require("asset:upload")).Post("/assets", api.UploadAssetHandler(bs))
		pr.Get("/assets/{key}", api.ServeAssetHandler(bs))

		// Teacher: authoring
		pr.With(rbac.Require("question:create")).
			Post("/questions", api.CreateQuestionHandler(store, bank))
		pr.With(rbac.Require("question:bank")).
			Get("/questions/for-selection", api.ListForSelectionHandler(store, bank))
		pr.With(rbac.Require("exam:preview")).
			Post("/preview-random-selection", api.PreviewRandomSelectionHandler())
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.CreateExamHandler(store, events))
		pr.With(rbac.Require("exam:update")).
			Put("/exams/{examID}", api.UpdateExamHandler(store, events))

		// Shared: discovery
		pr.With(rbac.Require("exam:view")).
			Get("/exams", api.ListExamsHandler(store))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))

		// Student flow
		pr.With(rbac.Require("exam:join")).
			Post("/exams/join", api.JoinExamHandler(store))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/responses", api.SaveResponsesHandler(store))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(store, events))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(store))

		// Teacher: grading and retake control
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grades", api.ApplyManualGradesHandler(store))
		pr.With(rbac.Require("attempt:reset")).
			Post("/exams/{examID}/reset", api.ResetAttemptHandler(store, events))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "mode": cfg.Mode, "db": cfg.DBDriver}).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
