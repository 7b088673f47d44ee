// Package core defines the shared contracts of the Lux runtime: signals and
// their routing, handler kinds (prisms, beams), memory store interfaces,
// agent references and identifier generation. Higher-level packages (agent,
// company, protocol, hub) depend on core; core depends only on logging.
package core
