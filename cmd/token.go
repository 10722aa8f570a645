package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/server"
)

// issuedToken is the JSON output of 'token issue'.
type issuedToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenIssue finds or creates the user and prints a bearer token for them.
func (r *Runner) TokenIssue(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	user, created, err := repositories.NewUserRepository(db).FindOrCreateByEmail(ctx, cmd.String("email"), cmd.String("name"))
	if err != nil {
		return err
	}
	if created {
		r.logger.Info("created user", "user_id", user.ID, "email", user.Email)
	}

	ttl := r.config.Server.TTL()
	token, err := server.NewTokenIssuer(r.config.Server.JWTSecret, ttl).Issue(user.ID, user.Email)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(issuedToken{
			Token:     token,
			UserID:    user.ID,
			Email:     user.Email,
			ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second),
		}, true)
	}
	return r.writePlain("%s\n", token)
}
