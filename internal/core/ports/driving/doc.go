// Package driving defines the interfaces that external actors use to call
// INTO the core. The CLI adapter drives the pipeline through these ports.
package driving
