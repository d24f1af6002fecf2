package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// WorkflowService queues workflow launches for the workflow engine to pick up
type WorkflowService struct {
	db *gorm.DB
}

// NewWorkflowService creates a workflow service over the given database handle
func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db}
}

// Launch implements WorkflowLauncher by writing one pending launch row
func (s *WorkflowService) Launch(ctx context.Context, workflowTypeID int64, name string, attributes map[string]string) error {
	var workflowType models.WorkflowType
	if err := s.db.WithContext(ctx).First(&workflowType, workflowTypeID).Error; err != nil {
		return fmt.Errorf("workflow type %d: %w", workflowTypeID, err)
	}
	if !workflowType.IsActive {
		return fmt.Errorf("workflow type %d (%s) is inactive", workflowType.ID, workflowType.Name)
	}

	attrs, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("failed to encode workflow attributes: %w", err)
	}

	launch := models.WorkflowLaunch{
		WorkflowTypeID: workflowType.ID,
		Name:           name,
		Attributes:     attrs,
		Status:         "pending",
		RequestedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&launch).Error; err != nil {
		return fmt.Errorf("failed to queue workflow launch: %w", err)
	}
	return nil
}
