// cmd/enrollment-server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"enrollment-core/internal/carrier"
	"enrollment-core/internal/common/aws"
	"enrollment-core/internal/common/config"
	"enrollment-core/internal/common/database"
	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/common/observability"
	"enrollment-core/internal/enrollment"
	"enrollment-core/internal/enrollment/builder"
	"enrollment-core/internal/enrollment/cart"
	"enrollment-core/internal/enrollment/notify"
	"enrollment-core/internal/enrollment/store"
	"enrollment-core/internal/enrollment/submit"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting enrollment server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS notification clients ---
	var emailClient *aws.SESClient
	var smsClient *aws.SNSClient
	if cfg.Notifications.Email.Enabled {
		emailClient, err = aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SES client init failed, email notifications disabled", zap.Error(err))
			emailClient = nil
		}
	}
	if cfg.Notifications.SMS.Enabled {
		smsClient, err = aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SNS client init failed, SMS notifications disabled", zap.Error(err))
			smsClient = nil
		}
	}

	// --- Wire the enrollment pipeline ---
	registry := carrier.NewRegistry(cfg.Carriers, log)
	questionCache := carrier.NewQuestionCache(
		redis.Client,
		time.Duration(cfg.Database.Redis.QuestionCacheTTL)*time.Second,
		log,
	)
	partitioner := cart.NewPartitioner(cfg.Carriers.DefaultSlug)

	shapeByCarrier := make(map[string]string, len(cfg.Carriers.Endpoints))
	for slug, endpoint := range cfg.Carriers.Endpoints {
		shapeByCarrier[slug] = endpoint.SubmitShape
	}
	requestBuilder := builder.NewBuilder(shapeByCarrier, cfg.Submission.DefaultAgentID, log)

	appStore := store.NewStore(pg.DB, log)
	auditLog := store.NewAuditLog(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)

	var email notify.EmailSender
	if emailClient != nil {
		email = emailClient
	}
	var sms notify.SMSSender
	if smsClient != nil {
		sms = smsClient
	}
	notifier := notify.NewNotifier(cfg.Notifications, email, sms, log)
	go notifier.Run(ctx)

	orchestrator := submit.NewOrchestrator(
		submit.NewCarrierDirectory(registry),
		appStore,
		auditLog,
		notifier,
		time.Duration(cfg.Submission.PerCarrierTimeoutMS)*time.Millisecond,
		log,
	)

	service := enrollment.NewService(partitioner, registry, questionCache, requestBuilder, orchestrator, log)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/enroll", enrollHandler(service, obs, log))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	zapLog.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	cancel()
	zapLog.Info("Enrollment server stopped")
}

func enrollHandler(service *enrollment.Service, obs *observability.Observability, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req enrollment.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "invalid request body",
			})
			return
		}

		start := time.Now()
		result, err := service.Enroll(r.Context(), req)
		if err != nil {
			log.Error("enrollment failed", map[string]interface{}{
				"error": err,
			})
			obs.RecordEnrollment(r.Context(), "error")
			writeJSON(w, statusForError(err), errorBody(err))
			return
		}

		obs.RecordEnrollment(r.Context(), result.Outcome.Outcome)
		obs.RecordDuration(r.Context(), time.Since(start), result.Outcome.Outcome)
		writeJSON(w, http.StatusOK, result)
	}
}

func statusForError(err error) int {
	var se *apperrors.StandardError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Category {
	case apperrors.CategoryValidation:
		return http.StatusBadRequest
	case apperrors.CategoryContext:
		return http.StatusConflict
	case apperrors.CategoryCollaborator:
		return http.StatusBadGateway
	case apperrors.CategoryStructural:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) map[string]interface{} {
	body := map[string]interface{}{"error": err.Error()}
	var se *apperrors.StandardError
	if errors.As(err, &se) {
		body["code"] = string(se.Code)
		if se.Hint != "" {
			body["hint"] = se.Hint
		}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written; nothing left to do.
		_ = err
	}
}
