package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/principlequiz/backend/internal/config"
	"github.com/principlequiz/backend/internal/database"
	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/llm"
	"github.com/principlequiz/backend/internal/principles"
	"github.com/principlequiz/backend/internal/questions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Completion client and generator
	client, err := llm.NewClient(context.Background(), cfg.LLM.Client)
	if err != nil {
		log.Fatalf("Failed to create completion client: %v", err)
	}
	gen, err := generator.New(generator.Config{
		Client:      client,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	// Initialize handlers
	principleStore := principles.NewStore(db)
	principleHandler := principles.NewHandler(principleStore)

	questionService := questions.NewService(questions.NewStore(db), principleStore, gen, questions.ServiceConfig{
		MaxCostUSD: cfg.MaxCostUSD,
		GroupSize:  cfg.GroupSize,
	})
	questionHandler := questions.NewHandler(questionService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	principleHandler.RegisterRoutes(api)
	questionHandler.RegisterRoutes(api)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	handler := c.Handler(r)

	log.Printf("Server starting on :%s (model %s)", cfg.Port, gen.ModelName())
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
