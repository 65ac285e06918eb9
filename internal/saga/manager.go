package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultEventBuffer = 100

// Manager runs saga definitions step by step.
// Steps run strictly in order, the first failed result stops the saga, and nothing is retried.
type Manager struct {
	logger    *zap.Logger
	eventChan chan SagaEvent
}

// NewManager creates a new saga manager with a buffered event channel.
// Events are dropped when nobody drains the channel fast enough.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		eventChan: make(chan SagaEvent, defaultEventBuffer),
	}
}

// Execute runs def to completion and returns the instance record.
// The returned error is the error of the failed step, nil on success.
func (m *Manager) Execute(ctx context.Context, def SagaDefinition, data SagaData) (*SagaInstance, error) {
	if data == nil {
		data = SagaData{}
	}

	steps := def.Steps()
	instance := &SagaInstance{
		ID:         SagaID(fmt.Sprintf("%s_%s", def.ID(), uuid.NewString())),
		Definition: def.ID(),
		State:      SagaStateRunning,
		Data:       data,
		Steps:      make([]StepExecution, len(steps)),
		StartedAt:  time.Now(),
	}
	for i, step := range steps {
		instance.Steps[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}

	m.emitEvent(SagaEvent{
		SagaID:    instance.ID,
		Type:      EventSagaStarted,
		Timestamp: instance.StartedAt,
	})

	if timeout := def.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for i, step := range steps {
		if err := m.executeStep(ctx, instance, i, step); err != nil {
			for j := i + 1; j < len(steps); j++ {
				instance.Steps[j].State = StepStateSkipped
			}
			m.failSaga(instance, err)
			return instance, err
		}
	}

	m.completeSaga(instance)
	return instance, nil
}

// executeStep runs a single step and records its outcome
func (m *Manager) executeStep(ctx context.Context, instance *SagaInstance, stepIndex int, step Step) error {
	exec := &instance.Steps[stepIndex]
	exec.State = StepStateRunning
	started := time.Now()
	exec.StartedAt = &started

	m.emitEvent(SagaEvent{
		SagaID:    instance.ID,
		StepID:    step.ID(),
		Type:      EventStepStarted,
		Timestamp: started,
	})

	result := step.Execute(ctx, instance.Data)

	completed := time.Now()
	exec.CompletedAt = &completed

	if result.Success {
		exec.State = StepStateCompleted
		exec.Result = result.Data

		m.emitEvent(SagaEvent{
			SagaID:    instance.ID,
			StepID:    step.ID(),
			Type:      EventStepCompleted,
			Timestamp: completed,
			Data:      result.Data,
		})

		m.logger.Debug("Step completed",
			zap.String("sagaID", string(instance.ID)),
			zap.String("stepID", string(step.ID())),
			zap.Duration("duration", exec.Duration()))
		return nil
	}

	err := result.Error
	if err == nil {
		err = errors.New("step failed without error")
	}
	exec.State = StepStateFailed
	exec.Error = err.Error()

	m.emitEvent(SagaEvent{
		SagaID:    instance.ID,
		StepID:    step.ID(),
		Type:      EventStepFailed,
		Timestamp: completed,
		Data:      err.Error(),
	})

	m.logger.Error("Step failed",
		zap.String("sagaID", string(instance.ID)),
		zap.String("stepID", string(step.ID())),
		zap.Error(err))
	return fmt.Errorf("step %s failed: %w", step.ID(), err)
}

func (m *Manager) failSaga(instance *SagaInstance, err error) {
	now := time.Now()
	instance.State = SagaStateFailed
	instance.CompletedAt = &now
	instance.Error = err.Error()

	m.emitEvent(SagaEvent{
		SagaID:    instance.ID,
		Type:      EventSagaFailed,
		Timestamp: now,
		Data:      err.Error(),
	})
}

// completeSaga marks a saga as completed
func (m *Manager) completeSaga(instance *SagaInstance) {
	now := time.Now()
	instance.State = SagaStateCompleted
	instance.CompletedAt = &now

	m.emitEvent(SagaEvent{
		SagaID:    instance.ID,
		Type:      EventSagaCompleted,
		Timestamp: now,
	})

	m.logger.Debug("Saga completed",
		zap.String("sagaID", string(instance.ID)),
		zap.Duration("duration", now.Sub(instance.StartedAt)))
}

func (m *Manager) emitEvent(event SagaEvent) {
	select {
	case m.eventChan <- event:
	default:
		m.logger.Debug("Event channel full, dropping event", zap.String("type", event.Type))
	}
}

// LogEvents drains the event channel into the logger until ctx is done
func (m *Manager) LogEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.eventChan:
			m.logger.Debug("Saga event",
				zap.String("sagaID", string(event.SagaID)),
				zap.String("stepID", string(event.StepID)),
				zap.String("type", event.Type))
		}
	}
}
