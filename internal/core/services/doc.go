// Package services implements the core business logic: collection
// resolution, attachment upload, markdown rewriting and the resumable
// tree upload orchestrator.
//
// Services depend only on driven ports and implement driving ports,
// keeping transport and storage details out of the migration logic.
package services
