package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/api"
	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/config"
	"github.com/javiermolinar/clinicflow/internal/db"
)

// openRepository builds the repository selected by the storage driver,
// wrapped in the availability cache when a redis address is configured.
// The returned closers must be closed after the repository.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (appointment.Repository, []io.Closer, error) {
	var (
		repo appointment.Repository
		err  error
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		repo, err = db.NewPostgres(ctx, cfg.Storage.DSN, cfg.Clinic.OrgID)
	case config.DriverRemote:
		repo = api.NewClient(cfg.Storage.APIURL, nil)
	case config.DriverMemory:
		repo = db.NewMemory()
	case config.DriverSQLite, "":
		repo, err = db.New(cfg.Storage.DBPath, cfg.Clinic.OrgID)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s repository: %w", cfg.Storage.Driver, err)
	}
	logger.Debug("repository opened", zap.String("driver", cfg.Storage.Driver), zap.String("org", cfg.Clinic.OrgID))

	if cfg.Cache.RedisAddr == "" {
		return repo, nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("availability cache unreachable, continuing without it",
			zap.String("addr", cfg.Cache.RedisAddr),
			zap.Error(err),
		)
		_ = client.Close()
		return repo, nil, nil
	}
	cached := availability.NewCachingRepository(repo, client, cfg.Clinic.OrgID, cfg.AvailabilityTTL(), logger)
	return cached, []io.Closer{client}, nil
}

// findAppointment looks id up through GetAppointment when the repository
// has it, and otherwise scans a year on either side of now.
func findAppointment(ctx context.Context, repo appointment.Repository, id string, now time.Time) (*appointment.Appointment, error) {
	type getter interface {
		GetAppointment(ctx context.Context, id string) (*appointment.Appointment, error)
	}
	if g, ok := repo.(getter); ok {
		return g.GetAppointment(ctx, id)
	}
	appts, err := repo.ListAppointments(ctx, now.AddDate(-1, 0, 0), now.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("looking up appointment: %w", err)
	}
	for _, a := range appts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, appointment.ErrNotFound
}
