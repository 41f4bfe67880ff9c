package commands

import (
	"time"

	"github.com/multichat-ai/multichat/internal/api"
	"github.com/multichat-ai/multichat/internal/config"
	"github.com/multichat-ai/multichat/internal/deployment"
	"github.com/multichat-ai/multichat/internal/notes"
	"github.com/multichat-ai/multichat/internal/session"
	"github.com/multichat-ai/multichat/internal/settings"
	"github.com/multichat-ai/multichat/internal/storage"
	"github.com/multichat-ai/multichat/internal/stream"
)

// app wires the orchestrator components from the loaded configuration.
type app struct {
	cfg          *config.Config
	store        *storage.Storage
	registry     *session.Registry
	deployments  *deployment.Service
	notesStore   notes.Store
	synchronizer *settings.Synchronizer
}

func buildApp() *app {
	cfg := appConfig
	store := storage.New(cfg.DataDir)
	auth := api.Auth{BearerToken: cfg.BearerToken, APIKey: cfg.APIKey}

	streamer := session.ClientStreamer{Client: stream.NewClient(stream.Config{
		InferenceURL:   cfg.InferenceURL,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
		StallTimeout:   time.Duration(cfg.StallTimeout) * time.Second,
	})}

	var recorder session.UsageRecorder
	if cfg.TelemetryURL != "" {
		recorder = api.NewTelemetryClient(cfg.TelemetryURL, auth)
	}

	var notesStore notes.Store
	if cfg.NotesBackend == config.NotesBackendRemote {
		notesStore = notes.NewRemotePaged(api.NewNotesClient(cfg.NotesURL, auth))
	} else {
		notesStore = notes.NewLocalMirror(store)
	}

	return &app{
		cfg:          cfg,
		store:        store,
		registry:     session.NewRegistry(streamer, recorder, session.NewStorageSaver(store)),
		deployments:  deployment.NewService(api.NewDeploymentClient(cfg.DeploymentsURL, auth)),
		notesStore:   notesStore,
		synchronizer: settings.NewSynchronizer(nil),
	}
}
