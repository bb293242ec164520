package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	moonshotadapter "medication-tracker/internal/adapters/assistant/moonshot"
	notifymem "medication-tracker/internal/adapters/notify/memory"
	"medication-tracker/internal/adapters/notify/pushover"
	"medication-tracker/internal/adapters/storage/file"
	"medication-tracker/internal/adapters/storage/kvrepo"
	storemem "medication-tracker/internal/adapters/storage/memory"
	"medication-tracker/internal/adapters/storage/postgres"
	"medication-tracker/internal/adapters/storage/sqlite"
	"medication-tracker/internal/config"
	"medication-tracker/internal/domain/chat"
	"medication-tracker/internal/domain/doses"
	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/domain/reminders"
	"medication-tracker/internal/middleware"
	"medication-tracker/internal/platform/httpclient"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/assistant"
	"medication-tracker/internal/ports/kv"
	"medication-tracker/internal/ports/notify"
)

type Options struct {
	Config config.Config
	Logger logger.Logger

	// Overrides para tests; nil usa lo que diga la config.
	Store     kv.Store
	Notifier  notify.Port
	Assistant assistant.Port
}

// Background agrupa lo que vive más allá del request: el worker de
// entrega de Pushover (si aplica) y los handles a cerrar en shutdown.
type Background struct {
	worker  *pushover.Notifier
	closers []io.Closer
}

// Start lanza el worker de entrega; no-op si el backend de
// notificaciones no lo necesita.
func (b *Background) Start(ctx context.Context) {
	if b.worker != nil {
		go b.worker.Start(ctx)
	}
}

func (b *Background) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New arma el router completo: storage, repos, import legacy, services
// y rutas por módulo.
func New(opts Options) (http.Handler, *Background, error) {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}

	bg := &Background{}

	store := opts.Store
	if store == nil {
		var err error
		store, err = openStore(cfg, bg)
		if err != nil {
			return nil, nil, err
		}
	}

	medsRepo := kvrepo.NewMedicationsRepo(store, log)
	dosesRepo := kvrepo.NewDosesRepo(store, log)
	remindersRepo := kvrepo.NewRemindersRepo(store, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := kvrepo.ImportLegacy(ctx, store, medsRepo, dosesRepo, log); err != nil {
		// la importación no bloquea el arranque
		log.Warn("legacy import failed", map[string]any{"error": err.Error()})
	}

	notifier := opts.Notifier
	if notifier == nil {
		if cfg.Pushover.Token != "" && cfg.Pushover.User != "" {
			po := pushover.NewNotifier(
				pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.User, httpclient.New(10*time.Second)),
				log,
			)
			bg.worker = po
			notifier = po
		} else {
			notifier = notifymem.NewNotifier()
		}
	}

	assistantPort := opts.Assistant
	if assistantPort == nil {
		assistantPort = moonshotadapter.NewClient(cfg.Moonshot.APIKey, cfg.Moonshot.Model, log)
	}

	sched := reminders.NewScheduler(notifier, remindersRepo, log)
	medsSvc := medications.NewService(medsRepo, dosesRepo, sched, log)
	dosesSvc := doses.NewService(dosesRepo, medsSvc, log)
	chatSvc := chat.NewService(assistantPort)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AuthToken(cfg.Auth.Token))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	medications.RegisterRoutes(r, medsSvc)
	doses.RegisterRoutes(r, dosesSvc)
	reminders.RegisterRoutes(r, sched, medsSvc)
	chat.RegisterRoutes(r, chatSvc)

	return r, bg, nil
}

func openStore(cfg config.Config, bg *Background) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storemem.NewStore(), nil
	case "file":
		return file.NewStore(cfg.Storage.FilePath)
	case "postgres":
		s, err := postgres.Open(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		bg.closers = append(bg.closers, s)
		return s, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		bg.closers = append(bg.closers, s)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
