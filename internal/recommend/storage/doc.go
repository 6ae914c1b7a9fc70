// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package storage persists trained model bundles.
//
// A bundle holds everything a recommender needs at serving time: the catalog
// in index order, the user index, the fitted embedding and the latent
// factors. Keeping them in one file means the matrices and the identifier
// indices they are addressed by can never drift apart.
//
// # Storage Format
//
// Bundles are gob-encoded, gzip-compressed and checksummed:
//
//	filename: {name}_v{version}.gob.gz
//
//	structure:
//	  - Metadata (version, counts, timings, evaluation metrics, SHA-256)
//	  - CompressedData (gzip of the gob-encoded Bundle)
//
// The checksum covers the uncompressed gob bytes and is verified on load.
// Files are written to a temporary name and renamed into place, so readers
// never observe a partial bundle.
//
// # Usage Example
//
//	store, err := storage.NewStore("/data/models")
//	if err != nil {
//	    return err
//	}
//	meta, err := store.Save(ctx, "folio", bundle, storage.Metadata{TrainedAt: time.Now()})
//	...
//	var restored storage.Bundle
//	meta, err = store.Load(ctx, "folio", 0, &restored) // 0 = latest
//
// # Thread Safety
//
// Store methods are safe for concurrent use. Writers are serialized by a
// mutex; readers share a read lock.
package storage
