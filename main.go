package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"phishvet/detect"
	"phishvet/model"
	"phishvet/server"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	lists := detect.DefaultLists()
	if path := os.Getenv("PHISHVET_LISTS"); path != "" {
		loaded, err := detect.LoadLists(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("load lists")
		}
		lists = loaded
	}

	bundlePath := os.Getenv("PHISHVET_MODEL")
	if bundlePath == "" {
		bundlePath = "artifacts/model_bundle.json"
	}
	bundle, err := model.Load(bundlePath)
	if err != nil {
		if !errors.Is(err, model.ErrBundleNotFound) {
			logger.Fatal().Err(err).Msg("load model bundle")
		}
		// No trained artifact yet: the service still serves definitive
		// pre-check verdicts; prediction requests answer 503.
		logger.Warn().Str("path", bundlePath).Msg("model bundle not found, classifier disabled")
		bundle = nil
	}

	opts := detect.Options{
		UseNetwork:      os.Getenv("PHISHVET_OFFLINE") != "true",
		UseContent:      os.Getenv("PHISHVET_CONTENT") == "true",
		Render:          os.Getenv("SKIP_CHROMEDP") != "true",
		TopK:            5,
		Timeout:         30 * time.Second,
		SafeBrowsingKey: os.Getenv("GOOGLE_SAFE_BROWSING_API_KEY"),
		DNSAddr:         os.Getenv("PHISHVET_DNS_ADDR"),
	}

	var predictor detect.Predictor
	if bundle != nil {
		predictor = bundle
	}
	pipeline := detect.New(lists, predictor, opts, logger)

	srv := server.New(pipeline, bundle, logger)

	logger.Info().
		Str("port", port).
		Bool("network", opts.UseNetwork).
		Bool("content", opts.UseContent).
		Bool("model_loaded", bundle != nil).
		Msg("phishvet listening")

	if err := http.ListenAndServe(":"+port, srv.Routes()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
