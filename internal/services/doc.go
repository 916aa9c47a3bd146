// Package services wires the ragchat components into one registry.
//
// New opens the stores, builds the embedding provider and answer generator
// selected by configuration, and connects the index builder, retriever and
// chat orchestrator through a shared per-app lock table. The HTTP server and
// the server binary only talk to the Registry.
package services
