// Package logging provides a tiny abstraction over slog so the runtime can
// depend on a minimal interface (Logger) while users plug in any structured
// logger. Contextual helpers scope a logger to an agent, company or signal.
package logging
