// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/config"
)

// runToken prints a signed bearer token for a user.
//
//	mapmark-server token -user alice -role editor
func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "subject (user id) of the token")
	name := fs.String("name", "", "display name, defaults to -user")
	role := fs.String("role", "editor", "role: viewer or editor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("token: -user is required")
	}
	if *name == "" {
		*name = *user
	}

	mgr, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	token, err := mgr.GenerateToken(*user, *name, *role)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
