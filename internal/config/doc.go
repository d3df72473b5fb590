// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package config loads Mapmark configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig, loaded through the structs provider)
 2. An optional YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/mapmark/config.yaml or /etc/mapmark/config.yml
 3. Environment variables, through an explicit name mapping

Unmapped environment variables are ignored. Comma-separated values are
split for list settings such as CORS_ORIGINS.

Example config.yaml:

	server:
	  port: 8640
	  environment: production
	store:
	  backend: badger
	  path: /data/mapmark
	feed:
	  embedded: true
	security:
	  auth_mode: jwt
	  cors_origins: ["https://maps.example.com"]
	logging:
	  level: info

Common environment variables:

	HTTP_PORT           server.port
	BADGER_PATH         store.path
	NATS_URL            feed.nats_url
	NATS_EMBEDDED       feed.embedded
	AUTH_MODE           security.auth_mode (none, jwt)
	JWT_SECRET          security.jwt_secret
	CORS_ORIGINS        security.cors_origins
	MAPMARK_URL         client.base_url
	MAPMARK_TOKEN       client.token
	LOG_LEVEL           logging.level

Usage:

	cfg, err := config.Load()
	if err != nil {
	    return err
	}
	logging.Init(cfg.Logging.Logging())
	store, err := docstore.OpenBadger(cfg.Store.Badger())
*/
package config
