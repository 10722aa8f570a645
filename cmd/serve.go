package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/server"
	"github.com/desertthunder/pluto/internal/shared"
)

// buildHandler wires the stores, services, and authentication into the HTTP handler.
func (r *Runner) buildHandler(ctx context.Context) (*server.BasicRouter, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	loc, err := r.config.CheckIn.Location()
	if err != nil {
		return nil, err
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	courses := repositories.NewCourseRepository(db)
	progress := repositories.NewProgressRepository(db)
	users := repositories.NewUserRepository(db)
	checkIns := repositories.NewCheckInRepository(db)

	checkInService := checkin.NewService(courses, checkIns,
		checkin.WithLocation(loc),
		checkin.WithLogger(shared.WithLogger(r.logger, "component", "checkin")),
	)
	dashboards := dashboard.NewService(courses, progress)

	var importer server.Importer
	if r.source != nil {
		importer = r.engine(db)
	} else {
		r.logger.Warn("youtube.api_key is not set; playlist import is disabled")
	}

	cfg := r.config.Server
	tokens := server.NewTokenIssuer(cfg.JWTSecret, cfg.TTL())
	auth := server.NewAuthenticator(tokens, server.NewSessionStore(cfg.SessionKey, cfg.SecureCookies))
	httpLogger := shared.WithLogger(r.logger, "component", "http")
	api := server.NewAPI(checkInService, dashboards, courses, progress, importer, httpLogger)

	oauth, err := server.DiscoverOAuthHandler(ctx, r.config.Auth.OIDC, users, auth, cfg.SecureCookies, httpLogger)
	switch {
	case errors.Is(err, shared.ErrAuthDisabled):
		r.logger.Info("OIDC login disabled; use 'pluto token issue' for API tokens")
	case err != nil:
		return nil, fmt.Errorf("failed to configure login: %w", err)
	}

	return server.NewRouter(api, oauth, auth, httpLogger), nil
}

// Serve runs the HTTP API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	handler, err := r.buildHandler(ctx)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	return server.ListenAndServe(ctx, addr, handler, r.logger)
}
