// Package jobs contains the enrichment pipeline orchestration: the enqueuer
// that creates jobs and fans out downstream stages, the per-stage processors,
// the worker loop that claims and executes batches, the sweeper that reclaims
// abandoned work, and the admin resume surface.
package jobs
