// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package exchange converts entities to and from the JSON export documents.

Export documents carry image-space integer coordinates only. Every function
takes a Frame naming the image and the current canvas, converts on the way
out and back, and validates documents with the shared validator before use.

	f := exchange.Frame{ImageReference: "castle.png", Image: img, Canvas: canvas}
	doc, err := exchange.ExportPoints(f, points.GetAll(), time.Now())
	if err != nil {
	    return err
	}
	return exchange.Write(w, doc)

Reading is the reverse:

	doc, err := exchange.Read[models.PointExport](r)
	markers, err := exchange.ImportPoints(f, doc, true)

Documents exported from an image of another size are rejected with
ErrImageMismatch. File handling is left to the caller.
*/
package exchange
