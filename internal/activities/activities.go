package activities

import (
	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/artifacts"
	"github.com/kestrellabs/deepresearch/internal/config"
	"github.com/kestrellabs/deepresearch/internal/providers"
	"github.com/kestrellabs/deepresearch/internal/session"
	"github.com/kestrellabs/deepresearch/internal/store"
)

// Activities bundles the worker-side dependencies every research
// activity needs. One instance is registered with the Temporal worker;
// all sessions share it, while per-session state (the citation
// registry) lives in the session manager.
type Activities struct {
	llm       providers.LanguageModel
	search    providers.SearchProvider
	sessions  *session.Manager
	cfg       *config.Store
	store     *store.Store // nil when persistence is not configured
	artifacts *artifacts.Writer
	logger    *zap.Logger
}

func NewActivities(
	llm providers.LanguageModel,
	search providers.SearchProvider,
	sessions *session.Manager,
	cfg *config.Store,
	st *store.Store,
	art *artifacts.Writer,
	logger *zap.Logger,
) *Activities {
	return &Activities{
		llm:       llm,
		search:    search,
		sessions:  sessions,
		cfg:       cfg,
		store:     st,
		artifacts: art,
		logger:    logger,
	}
}
