// Package tui provides an interactive chat interface for docqa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI talks to.
type Ports struct {
	// Retrieval answers questions and lists documents. Required.
	Retrieval driving.RetrievalService

	// QuestionLog records the chat session. Optional.
	QuestionLog driving.QuestionLogService
}

// NewPorts creates a Ports aggregate.
func NewPorts(retrieval driving.RetrievalService, questionLog driving.QuestionLogService) *Ports {
	return &Ports{
		Retrieval:   retrieval,
		QuestionLog: questionLog,
	}
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
