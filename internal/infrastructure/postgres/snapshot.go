package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// snapshotTables tablas incluidas en el respaldo, en orden de dependencia.
// rfq_documents queda fuera: los binarios no caben en un export JSON legible.
var snapshotTables = []string{
	"users",
	"suppliers",
	"brands",
	"supplier_brands",
	"rfqs",
	"rfq_items",
	"supplier_responses",
	"quotations",
	"quotation_items",
	"rfq_sequences",
}

// Snapshotter exporta el estado de la base a archivos JSON fechados y aplica
// la retención configurada.
type Snapshotter struct {
	pool   *pgxpool.Pool
	dir    string
	logger zerolog.Logger
}

// NewSnapshotter construye el exportador de respaldos.
func NewSnapshotter(pool *pgxpool.Pool, dir string, logger zerolog.Logger) *Snapshotter {
	return &Snapshotter{
		pool:   pool,
		dir:    dir,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// SnapshotNow exporta todas las tablas a un archivo JSON fechado y devuelve
// su ruta. La serialización la hace el propio PostgreSQL (json_agg), así el
// respaldo refleja exactamente lo almacenado.
func (s *Snapshotter) SnapshotNow(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("crear directorio de respaldo: %w", err)
	}

	var parts []string
	for _, table := range snapshotTables {
		var raw []byte
		query := fmt.Sprintf(
			`SELECT COALESCE(json_agg(t), '[]'::json)::text FROM (SELECT * FROM %s) t`, table)
		if err := s.pool.QueryRow(ctx, query).Scan(&raw); err != nil {
			return "", fmt.Errorf("exportar tabla %s: %w", table, err)
		}
		parts = append(parts, fmt.Sprintf("%q: %s", table, raw))
	}
	payload := "{\n" + strings.Join(parts, ",\n") + "\n}\n"

	path := filepath.Join(s.dir, fmt.Sprintf("cotiza_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return "", fmt.Errorf("escribir respaldo: %w", err)
	}
	s.logger.Info().Str("path", path).Int("tables", len(snapshotTables)).Msg("respaldo generado")
	return path, nil
}

// Prune elimina respaldos con más días de antigüedad que la retención.
func (s *Snapshotter) Prune(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("leer directorio de respaldo: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "cotiza_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.dir, e.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("no se pudo eliminar respaldo viejo")
				continue
			}
			s.logger.Info().Str("path", path).Msg("respaldo viejo eliminado")
		}
	}
	return nil
}
