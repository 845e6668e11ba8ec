package main

import (
	"context"
	"strings"

	"podforge/internal/api"
	"podforge/internal/artifacts"
	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/generation"
	"podforge/internal/ipc"
	"podforge/internal/logging"
	"podforge/internal/storage"
)

// episodesAPI is the episode surface shared by the IPC path and the direct
// store fallback used when the daemon is not running.
type episodesAPI interface {
	List(ctx context.Context, owner string) ([]api.Episode, error)
	Describe(ctx context.Context, id string) (*api.Episode, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// withEpisodes runs fn against the daemon when its socket is reachable and
// otherwise against a read-only service built on the local database.
func (c *commandContext) withEpisodes(cmdCtx context.Context, fn func(context.Context, episodesAPI) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	if client, dialErr := ipc.Dial(c.socketPath()); dialErr == nil {
		defer client.Close()
		return fn(cmdCtx, &episodesIPCAdapter{client: client})
	}

	db, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := logging.NewNop()
	exec := executor.New(cfg, executor.NewStore(db), executor.NewRegistry(), logger)
	service := api.NewEpisodeService(
		episodes.NewStore(db),
		generation.NewAggregator(exec, logger),
		artifacts.NewStore(cfg, logger),
	)
	return fn(cmdCtx, &episodesServiceAdapter{service: service})
}

type episodesIPCAdapter struct {
	client *ipc.Client
}

func (a *episodesIPCAdapter) List(_ context.Context, owner string) ([]api.Episode, error) {
	resp, err := a.client.EpisodesList(owner)
	if err != nil {
		return nil, err
	}
	return resp.Episodes, nil
}

func (a *episodesIPCAdapter) Describe(_ context.Context, id string) (*api.Episode, error) {
	resp, err := a.client.EpisodesDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	episode := resp.Episode
	return &episode, nil
}

func (a *episodesIPCAdapter) Delete(_ context.Context, id string) (bool, error) {
	resp, err := a.client.EpisodesDelete(id)
	if err != nil {
		return false, err
	}
	return resp != nil && resp.Deleted, nil
}

type episodesServiceAdapter struct {
	service *api.EpisodeService
}

func (a *episodesServiceAdapter) List(ctx context.Context, owner string) ([]api.Episode, error) {
	return a.service.List(ctx, owner)
}

func (a *episodesServiceAdapter) Describe(ctx context.Context, id string) (*api.Episode, error) {
	return a.service.Describe(ctx, id)
}

func (a *episodesServiceAdapter) Delete(ctx context.Context, id string) (bool, error) {
	return a.service.Delete(ctx, id)
}
