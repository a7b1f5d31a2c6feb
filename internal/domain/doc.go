// Package domain defines the core entities of the enrichment pipeline:
// articles, enrichment jobs and their state machine, and the artifact
// types each stage produces (summaries, term cards, insights, quizzes).
// Entities validate their own shape rules; persistence lives elsewhere.
package domain
