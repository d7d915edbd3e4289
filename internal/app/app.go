// Package app assembles a desk from configuration. Both the server and the
// desktop viewer start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/config"
	"github.com/freeeve/orderdesk/internal/engine"
	"github.com/freeeve/orderdesk/internal/regions"
	"github.com/freeeve/orderdesk/internal/render"
	"github.com/freeeve/orderdesk/internal/repository"
	"github.com/freeeve/orderdesk/internal/repository/postgres"
	redisrepo "github.com/freeeve/orderdesk/internal/repository/redis"
	"github.com/freeeve/orderdesk/internal/repository/sqlite"
	"github.com/freeeve/orderdesk/internal/selection"
	"github.com/freeeve/orderdesk/internal/service"
	"github.com/freeeve/orderdesk/pkg/adjudicator"
)

// ErrNoAdjudicator is returned when no adjudicator path is configured.
var ErrNoAdjudicator = errors.New("ADJUDICATOR_PATH is not set")

// Desk is an assembled order desk and the resources it owns.
type Desk struct {
	Service *service.DeskService
	Index   *regions.Index
	Engine  engine.Engine

	adj     *adjudicator.Engine
	closers []func() error
}

// Open starts the configured adjudicator and assembles a desk around it.
func Open(ctx context.Context, cfg *config.Config, bc service.Broadcaster) (*Desk, error) {
	if cfg.AdjudicatorPath == "" {
		return nil, ErrNoAdjudicator
	}
	adj := adjudicator.NewEngine(cfg.AdjudicatorPath, cfg.AdjudicatorArgs...)
	adj.Timeout = cfg.EngineTimeout
	initCtx, cancel := context.WithTimeout(ctx, cfg.EngineTimeout)
	defer cancel()
	if err := adj.Init(initCtx); err != nil {
		return nil, err
	}

	d, err := OpenWith(ctx, cfg, adj, bc)
	if err != nil {
		adj.Close()
		return nil, err
	}
	d.adj = adj
	d.closers = append(d.closers, adj.Close)
	return d, nil
}

// Ready checks that the adjudicator still answers. A desk assembled around
// an in-process engine is always ready.
func (d *Desk) Ready(ctx context.Context) error {
	if d.adj == nil {
		return nil
	}
	return d.adj.IsReady(ctx)
}

// OpenWith assembles a desk around an already running engine.
func OpenWith(ctx context.Context, cfg *config.Config, eng engine.Engine, bc service.Broadcaster) (*Desk, error) {
	mode, err := selection.ParseInteraction(cfg.InteractionMode)
	if err != nil {
		return nil, err
	}

	base, err := LoadMap(cfg)
	if err != nil {
		return nil, err
	}

	idx, err := LoadRegions(cfg, base.Bounds())
	if err != nil {
		return nil, err
	}

	journal, closeJournal, err := OpenJournal(ctx, cfg)
	if err != nil {
		return nil, err
	}

	traced := engine.WithTracing(eng)
	d := &Desk{
		Service: service.NewDeskService(traced, idx, base, mode, journal, bc),
		Index:   idx,
		Engine:  traced,
	}
	if closeJournal != nil {
		d.closers = append(d.closers, closeJournal)
	}

	log.Info().
		Int("regions", idx.Len()).
		Str("interaction", mode.String()).
		Str("journal", cfg.Journal).
		Msg("Desk assembled")
	return d, nil
}

// Close releases the desk's resources in reverse order of acquisition.
func (d *Desk) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// LoadMap loads MAP_IMAGE, or a blank canvas of MAP_WIDTH x MAP_HEIGHT.
func LoadMap(cfg *config.Config) (*image.NRGBA, error) {
	if cfg.MapImage == "" {
		return render.BlankMap(cfg.MapWidth, cfg.MapHeight), nil
	}
	img, err := render.LoadBaseMap(cfg.MapImage)
	if err != nil {
		return nil, fmt.Errorf("load map image: %w", err)
	}
	return img, nil
}

// LoadRegions loads REGION_TABLE, or the embedded standard table, and
// checks every centre against bounds.
func LoadRegions(cfg *config.Config, bounds image.Rectangle) (*regions.Index, error) {
	if cfg.RegionTable == "" {
		return regions.Standard(bounds)
	}
	return regions.LoadFile(cfg.RegionTable, bounds)
}

// OpenJournal opens the configured journal backend. The returned close
// function is nil when there is nothing to release.
func OpenJournal(ctx context.Context, cfg *config.Config) (repository.Journal, func() error, error) {
	switch cfg.Journal {
	case config.JournalRedis:
		c, err := redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis journal: %w", err)
		}
		return c, c.Close, nil
	case config.JournalPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres journal: %w", err)
		}
		return postgres.NewJournalRepo(db), db.Close, nil
	case config.JournalSQLite:
		j, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite journal: %w", err)
		}
		return j, j.Close, nil
	default:
		return repository.NopJournal{}, nil, nil
	}
}
