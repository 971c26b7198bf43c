package api

import (
	"context"

	"github.com/megusto0/tgintegration/internal"
	"github.com/megusto0/tgintegration/internal/config"
	"github.com/megusto0/tgintegration/internal/media"
)

// TreatmentStore is the remote record store the handlers talk to.
type TreatmentStore interface {
	FetchByClientID(ctx context.Context, cid string) (map[string]any, error)
	FetchByID(ctx context.Context, id string) (map[string]any, error)
	Update(ctx context.Context, id string, patch, existing map[string]any) error
}

type App interface {
	Logger() internal.Logger
	Treatments() TreatmentStore
	Media() *media.Store
	Config() *config.Config
}

type app struct {
	logger internal.Logger
	store  TreatmentStore
	media  *media.Store
	cfg    *config.Config
}

func NewApp(logger internal.Logger, store TreatmentStore, m *media.Store, cfg *config.Config) App {
	return &app{logger: logger, store: store, media: m, cfg: cfg}
}

func (a *app) Logger() internal.Logger    { return a.logger }
func (a *app) Treatments() TreatmentStore { return a.store }
func (a *app) Media() *media.Store        { return a.media }
func (a *app) Config() *config.Config     { return a.cfg }
