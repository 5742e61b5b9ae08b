package pipegen

import (
	"sync"
	"time"

	"github.com/simon020286/pipegen/models"
)

// eventBus fans generation events out to registered listeners
type eventBus struct {
	listeners []models.EventListener
	mutex     sync.RWMutex
	pendingWg sync.WaitGroup
}

func newEventBus() *eventBus {
	return &eventBus{
		listeners: make([]models.EventListener, 0),
	}
}

func (eb *eventBus) addListener(listener models.EventListener) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.listeners = append(eb.listeners, listener)
}

// emit notifies every listener on its own goroutine
func (eb *eventBus) emit(runID string, eventType models.EventType, data map[string]any) {
	eb.mutex.RLock()
	listeners := make([]models.EventListener, len(eb.listeners))
	copy(listeners, eb.listeners)
	eb.mutex.RUnlock()

	if len(listeners) == 0 {
		return
	}

	event := models.Event{
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, listener := range listeners {
		eb.pendingWg.Add(1)
		go func(l models.EventListener) {
			defer eb.pendingWg.Done()
			l.OnEvent(event)
		}(listener)
	}
}

// wait blocks until every emitted event has been delivered
func (eb *eventBus) wait() {
	eb.pendingWg.Wait()
}

func (eb *eventBus) emitStarted(runID, name string) {
	eb.emit(runID, models.EventGenerationStarted, map[string]any{
		"pipeline": name,
	})
}

func (eb *eventBus) emitStageBuilt(runID string, index int, stage Stage) {
	eb.emit(runID, models.EventStageBuilt, map[string]any{
		"index":   index,
		"stage":   stage.Name,
		"actions": len(stage.Actions),
	})
}

func (eb *eventBus) emitCompleted(runID string, duration time.Duration) {
	eb.emit(runID, models.EventGenerationCompleted, map[string]any{
		"duration": duration,
	})
}

func (eb *eventBus) emitFailed(runID string, err error) {
	eb.emit(runID, models.EventGenerationFailed, map[string]any{
		"error": err.Error(),
	})
}
