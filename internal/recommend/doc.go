// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package recommend holds the shared vocabulary of the Folio recommendation
// engine: identifier newtypes, catalog items, interactions, requests and
// responses, and the engine configuration.
//
// The engine itself is split across subpackages, leaf first:
//
//   - catalog: normalizes raw catalog rows and resolves free-text titles
//   - embedding: TF-IDF plus truncated SVD item embeddings
//   - index: dense identifier indices and interaction filtering
//   - factors: SGD matrix factorization over explicit ratings
//   - evaluate: sampling-based Recall/Precision/NDCG@K
//   - storage: versioned, checksummed model persistence
//   - engine: the Recommender and the training pipeline tying it together
//
// Two strategies produce scores. A user present in the trained factor model
// gets latent-factor scores; anyone else gets content-based scores from the
// average embedding of the seed items they supplied. Seeds are never
// recommended back, and ties rank by catalog order.
package recommend
