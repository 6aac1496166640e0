// Package app wires configuration into the shared runtime used by both
// front ends: storage, the session manager, the API clients and the flows.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smartsim-dev/smartsim/internal/client"
	"github.com/smartsim-dev/smartsim/internal/config"
	"github.com/smartsim-dev/smartsim/internal/flows"
	"github.com/smartsim-dev/smartsim/internal/routes"
	"github.com/smartsim-dev/smartsim/internal/session"
	"github.com/smartsim-dev/smartsim/internal/smsdev"
	"github.com/smartsim-dev/smartsim/internal/storage"
)

// Runtime is everything a front end needs to serve the session
type Runtime struct {
	Config  *config.Config
	Logger  zerolog.Logger
	KV      storage.KV
	Manager *session.Manager
	API     *client.Client
	SMS     *smsdev.Client
	Flows   *flows.Service
	Routes  *routes.Table
}

// New opens storage, restores the session and builds the flows
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Runtime, error) {
	policy, err := routes.ParsePolicy(cfg.Routes.Policy)
	if err != nil {
		return nil, err
	}

	kv, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	api := client.New(cfg.API.BaseURL, cfg.API.Timeout)
	sms := smsdev.New(cfg.SMS.BaseURL, cfg.SMS.MessageType, cfg.SMS.Timeout)

	return NewWithKV(ctx, cfg, logger, kv, api, sms, policy)
}

// NewWithKV builds a runtime over an already opened store and clients
func NewWithKV(ctx context.Context, cfg *config.Config, logger zerolog.Logger, kv storage.KV, api *client.Client, sms *smsdev.Client, policy routes.Policy) (*Runtime, error) {
	manager, err := session.NewManager(ctx, session.NewStore(kv), api, logger.With().Str("component", "session").Logger())
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	logger.Debug().
		Str("api_url", api.BaseURL()).
		Str("storage", cfg.Storage.Driver).
		Str("route_policy", policy.String()).
		Msg("Runtime ready")

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		KV:      kv,
		Manager: manager,
		API:     api,
		SMS:     sms,
		Flows:   flows.NewService(manager, api, sms, logger.With().Str("component", "flows").Logger()),
		Routes:  routes.DefaultTable(policy),
	}, nil
}

// Close releases the storage backend
func (r *Runtime) Close() error {
	return r.KV.Close()
}
