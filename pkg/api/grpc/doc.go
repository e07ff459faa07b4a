// Package grpc exposes the grpc.health.v1 service for orchestrator probes.
package grpc
