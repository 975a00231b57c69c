package app

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/ent0n29/taskdesk/internal/config"
	"github.com/ent0n29/taskdesk/internal/dialog"
	"github.com/ent0n29/taskdesk/internal/httpapi"
	"github.com/ent0n29/taskdesk/internal/logging"
	"github.com/ent0n29/taskdesk/internal/notify"
	"github.com/ent0n29/taskdesk/internal/observability"
	"github.com/ent0n29/taskdesk/internal/tasks"
)

type BuildResult struct {
	Config        config.Config
	API           *httpapi.Server
	Store         *tasks.Store
	Dialogs       *dialog.Manager
	Notifications *notify.Hub
	Metrics       *observability.Metrics

	// Cleanup should be called on shutdown to stop timers and close subscribers.
	Cleanup func() error
}

// Build wires the task store, dialog manager and notification hub together
// and starts the dialog janitor. The janitor stops when ctx is cancelled.
func Build(ctx context.Context, cfg config.Config, logger *log.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store := tasks.NewStore()
	hub := notify.NewHub(cfg.NotificationTTL)
	dialogs := dialog.NewManager(store, cfg.DialogInactivityTimeout)
	dialogs.SetClosedRetention(cfg.DialogRetention)
	dialogs.SetExpireHook(func(d *dialog.Dialog) {
		metrics.DialogEvents.WithLabelValues(string(d.Outcome)).Inc()
		metrics.OpenDialogs.Set(float64(dialogs.OpenCount()))
		logger.Debug("dialog closed without save", "dialog_id", d.ID, "outcome", d.Outcome)
	})

	store.SetMutationHook(func(m tasks.Mutation) {
		metrics.TaskMutations.WithLabelValues(string(m.Kind)).Inc()
		metrics.Tasks.Set(float64(store.Len()))

		kind, message := notify.MessageFor(m.Kind)
		n := hub.Publish(kind, message, m.Task.ID)
		metrics.NotificationEvents.WithLabelValues("shown").Inc()

		if m.Kind == tasks.MutationDeleted {
			if closed := dialogs.CloseForTask(m.Task.ID); closed > 0 {
				metrics.OpenDialogs.Set(float64(dialogs.OpenCount()))
			}
		}
		logger.Info("task committed",
			"kind", m.Kind,
			"task_id", m.Task.ID,
			"notification_id", n.ID,
		)
	})

	hub.SetDismissHook(func(n notify.Notification, reason notify.DismissReason) {
		metrics.NotificationEvents.WithLabelValues(string(reason)).Inc()
	})

	dialogs.StartJanitor(ctx, cfg.DialogJanitorInterval)

	api := httpapi.New(cfg, store, dialogs, hub, metrics, logger)

	cleanup := func() error {
		hub.Close()
		return nil
	}

	return &BuildResult{
		Config:        cfg,
		API:           api,
		Store:         store,
		Dialogs:       dialogs,
		Notifications: hub,
		Metrics:       metrics,
		Cleanup:       cleanup,
	}, nil
}
