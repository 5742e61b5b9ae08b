package models

import (
	"time"
)

// EventType identifies an event emitted during a generation run
type EventType string

const (
	// Run events
	EventGenerationStarted   EventType = "generation.started"
	EventGenerationCompleted EventType = "generation.completed"
	EventGenerationFailed    EventType = "generation.failed"

	// Emitted once per stage of a successfully built pipeline
	EventStageBuilt EventType = "stage.built"
)

// Event is a single notification about a generation run
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// EventListener receives generation events
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to EventListener
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}
