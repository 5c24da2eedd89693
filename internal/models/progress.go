package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrTaskNotFound is returned when a toggled task is not in the project
var ErrTaskNotFound = errors.New("task not found")

// IsCompleted reports whether the task's normalized status is Completada
func (t Task) IsCompleted() bool {
	return NormalizeStatus(string(t.Status)) == StatusCompleted
}

// Progress returns the rounded percentage of completed tasks, 0 for no tasks
func Progress(tasks []Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.IsCompleted() {
			done++
		}
	}
	// round half up in integer arithmetic
	return (done*200 + len(tasks)) / (2 * len(tasks))
}

// ExpectedStatus derives a project status from its progress
func ExpectedStatus(progress int) Status {
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// derivedStatus returns the status the project should have, keeping Atrasado
func derivedStatus(current Status, progress int) Status {
	current = NormalizeStatus(string(current))
	if current == StatusDelayed {
		return current
	}
	return ExpectedStatus(progress)
}

// toggledStatus is the status a toggle sends: Completado once every task is
// done, even for an Atrasado project; En progreso in between unless Atrasado;
// nil at 0% so the current status stays.
func toggledStatus(current Status, progress int) *Status {
	var st Status
	switch {
	case progress >= 100:
		st = StatusCompleted
	case progress > 0:
		st = derivedStatus(current, progress)
	default:
		return nil
	}
	return &st
}

// Reconcile computes the patch that brings a stored project in line with its tasks
func Reconcile(project Project, tasks []Task) (ProjectPatch, bool) {
	var patch ProjectPatch
	progress := Progress(tasks)
	if len(tasks) > 0 && progress != project.Progress {
		patch.Progress = &progress
	}
	current := NormalizeStatus(string(project.Status))
	if want := derivedStatus(current, progress); want != current {
		patch.Status = &want
	}
	return patch, !patch.Empty()
}

// ToggleTask flips a task between Completada and Pendiente and returns the
// updated project and tasks along with the patches to send.
func ToggleTask(project Project, tasks []Task, taskID int64) (Project, []Task, TaskPatch, ProjectPatch, error) {
	idx := slices.IndexFunc(tasks, func(t Task) bool { return t.ID == taskID })
	if idx < 0 {
		return project, tasks, TaskPatch{}, ProjectPatch{}, fmt.Errorf("%w: %d", ErrTaskNotFound, taskID)
	}

	updated := slices.Clone(tasks)
	next := StatusCompleted
	if updated[idx].IsCompleted() {
		next = StatusPending
	}
	updated[idx].Status = next

	progress := Progress(updated)
	projectPatch := ProjectPatch{Progress: &progress, Status: toggledStatus(project.Status, progress)}
	projectPatch.Apply(&project)

	return project, updated, TaskPatch{Status: &next}, projectPatch, nil
}
