package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/ad-moderation/internal/api"
	apiMiddleware "github.com/phrazzld/ad-moderation/internal/api/middleware"
)

// setupRouter wires the HTTP handlers to the application's dependencies.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	moderation := api.NewModerationHandler(app.tasks, app.ads, app.producer, app.logger)
	prediction := api.NewPredictionHandler(app.ads, app.model, app.logger)
	health := api.NewHealthHandler(app.model)

	r.Get("/", health.Root)
	r.Get("/health", health.Health)

	r.Post("/predict", prediction.Predict)
	r.Post("/simple_predict", prediction.SimplePredict)

	r.Post("/async_predict", moderation.AsyncPredict)
	r.Get("/moderation_result/{task_id}", moderation.GetResult)

	return r
}
