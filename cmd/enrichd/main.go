package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/db"
	"github.com/finlake/enrich/internal/enrich"
	"github.com/finlake/enrich/internal/handlers"
	"github.com/finlake/enrich/internal/logger"
	"github.com/finlake/enrich/internal/notify"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run one enrichment batch and exit")
	statementID := flag.String("statement", "", "restrict the batch to one statement")
	stopOnError := flag.Bool("stop-on-error", false, "abort a row's remaining steps after a failure")
	flag.Parse()

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	database, err := db.Connect(db.NewConfig())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Health(); err != nil {
		log.Fatal("database health check failed", zap.Error(err))
	}
	log.Info("database connection established")

	st := store.NewGormStore(database.DB)

	var events pipeline.ExceptionSink
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher := notify.NewKafkaPublisher(brokers, os.Getenv("KAFKA_EXCEPTION_TOPIC"), logger.Named(log, "kafka"))
		defer publisher.Close()
		events = publisher
		log.Info("exception events will be published to kafka", zap.String("brokers", brokers))
	}

	controller := enrich.NewController(st, logger.Named(log, "enrich"), events)

	if *once {
		report, err := controller.Run(context.Background(), enrich.Config{
			StatementID: *statementID,
			StopOnError: *stopOnError,
			Workers:     workersFromEnv(),
		})
		if err != nil {
			log.Fatal("enrichment batch failed", zap.Error(err))
		}
		log.Info("enrichment batch complete",
			zap.String("batch_id", report.BatchID),
			zap.Int("total", report.Total),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
		return
	}

	enrichmentHandler := handlers.NewEnrichmentHandler(controller, logger.Named(log, "http"))
	exceptionHandler := handlers.NewExceptionHandler(st, logger.Named(log, "http"))

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "enrichd",
		})
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/enrichment/run", enrichmentHandler.HandleRun).Methods(http.MethodPost)
	router.HandleFunc("/api/exceptions", exceptionHandler.HandleList).Methods(http.MethodGet)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func workersFromEnv() int {
	n, err := strconv.Atoi(os.Getenv("ENRICH_WORKERS"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
