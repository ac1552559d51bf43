// Respaldo periódico: exporta las tablas del dominio a un JSON fechado una
// vez al día y borra los exports que exceden la retención configurada.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/postgres"
	"github.com/tu-usuario/cotiza-pro/pkg/config"
	"github.com/tu-usuario/cotiza-pro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("dir", cfg.Backup.Dir).
		Int("retention_days", cfg.Backup.RetentionDays).
		Int("hour", cfg.Backup.Hour).
		Msg("iniciando servicio de respaldo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	snap := postgres.NewSnapshotter(pool, cfg.Backup.Dir, log.Zerolog())

	// Un respaldo inmediato al arrancar: si el servicio estuvo caído no
	// queremos esperar hasta la próxima hora programada.
	runOnce(ctx, snap, cfg.Backup.RetentionDays, log)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("servicio de respaldo detenido")
			return
		case <-time.After(untilNextRun(time.Now(), cfg.Backup.Hour)):
			runOnce(ctx, snap, cfg.Backup.RetentionDays, log)
		}
	}
}

func runOnce(ctx context.Context, snap *postgres.Snapshotter, retentionDays int, log *logger.Logger) {
	path, err := snap.SnapshotNow(ctx)
	if err != nil {
		log.Error().Err(err).Msg("respaldo fallido")
		return
	}
	log.Info().Str("path", path).Msg("respaldo escrito")

	if err := snap.Prune(retentionDays); err != nil {
		log.Error().Err(err).Msg("purga de respaldos antiguos fallida")
	}
}

// untilNextRun calcula cuánto falta para la próxima hora programada (hora
// local). Si la hora de hoy ya pasó, apunta a mañana.
func untilNextRun(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
