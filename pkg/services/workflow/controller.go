package workflow

import (
	"context"
	"fmt"
	"sync"
)

type Controller interface {
	Start(ctx context.Context, name string) error
	Cancel(ctx context.Context, name string) error
}

// RunnerFactory builds the runner for a named schedule, typically one per
// environment.
type RunnerFactory func(name string) (*Runner, error)

type workflowDescriptor struct {
	cancelFunc context.CancelFunc
	runner     *Runner
}

type DefaultController struct {
	newRunner RunnerFactory

	mu        sync.Mutex
	workflows map[string]workflowDescriptor
}

func NewController(newRunner RunnerFactory) *DefaultController {
	return &DefaultController{
		newRunner: newRunner,
		workflows: make(map[string]workflowDescriptor),
	}
}

func (ctrl *DefaultController) Start(ctx context.Context, name string) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if _, ok := ctrl.workflows[name]; ok {
		return fmt.Errorf("workflow already running: %s", name)
	}
	runner, err := ctrl.newRunner(name)
	if err != nil {
		return fmt.Errorf("create runner for %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	ctrl.workflows[name] = workflowDescriptor{
		cancelFunc: cancel,
		runner:     runner,
	}

	go runner.Run(ctx)
	return nil
}

func (ctrl *DefaultController) Cancel(_ context.Context, name string) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	desc, ok := ctrl.workflows[name]
	if !ok {
		return fmt.Errorf("workflow not running: %s", name)
	}
	desc.cancelFunc()
	<-desc.runner.Done()

	delete(ctrl.workflows, name)
	return nil
}

// Runner returns the runner started under name.
func (ctrl *DefaultController) Runner(name string) (*Runner, bool) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	desc, ok := ctrl.workflows[name]
	return desc.runner, ok
}

// Shutdown cancels every running workflow and waits for them to stop.
func (ctrl *DefaultController) Shutdown() {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	for name, desc := range ctrl.workflows {
		desc.cancelFunc()
		<-desc.runner.Done()
		delete(ctrl.workflows, name)
	}
}
