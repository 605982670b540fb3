package app

import (
	"context"

	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/services/activities"
	"github.com/bloom-app/progression/internal/app/services/award"
	"github.com/bloom-app/progression/internal/app/services/stats"
	"github.com/bloom-app/progression/internal/app/services/users"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/bloom-app/progression/internal/app/storage/memory"
	"github.com/bloom-app/progression/internal/app/system"
	"github.com/bloom-app/progression/internal/cache"
	"github.com/bloom-app/progression/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users      storage.UserStore
	Ledger     storage.LedgerStore
	Activities storage.ActivityStore
}

// Options carries optional application dependencies and policy.
type Options struct {
	// ProgressCache may be nil to disable caching.
	ProgressCache *cache.ProgressCache
	// StreakAnchor defaults to the strict today-inclusive mode.
	StreakAnchor progression.AnchorMode
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users    *users.Service
	Award    *award.Service
	Stats    *stats.Service
	Tasks    *activities.TaskService
	Sessions *activities.SessionRecorder
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Activities == nil {
		stores.Activities = mem
	}

	userService := users.New(stores.Users, log)
	awardService := award.New(stores.Users, stores.Ledger, stores.Activities, opts.ProgressCache, log)
	statsService := stats.New(stores.Ledger, stores.Activities, log)
	if opts.StreakAnchor != "" {
		statsService = statsService.WithAnchor(opts.StreakAnchor)
	}
	taskService := activities.NewTaskService(stores.Activities, awardService, log)
	sessionRecorder := activities.NewSessionRecorder(stores.Activities, awardService, log)

	return &Application{
		manager:  system.NewManager(),
		log:      log,
		Users:    userService,
		Award:    awardService,
		Stats:    statsService,
		Tasks:    taskService,
		Sessions: sessionRecorder,
	}, nil
}

// Register adds a lifecycle-managed background service.
func (a *Application) Register(svc system.Service) {
	a.manager.Register(svc)
}

// Start launches registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.StartAll(ctx)
}

// Stop shuts down background services in reverse start order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.StopAll(ctx)
}
