// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - RemoteClient: Outline REST API surface, retried by the caller
//   - SpaceStore: sidecar persistence for space trees
//   - AmbiguityResolver: operator choice among same-named collections
//   - AttachmentSource: local attachment file access
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven
