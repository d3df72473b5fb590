// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package websocket

import "errors"

// ErrSourceClosed is returned by FeedBridge.Serve when the change source
// closes its channel.
var ErrSourceClosed = errors.New("change source closed")
