package stackmanager

import "github.com/openpalm/stackctl/internal/stackspec"

// AutomationInput is the upsertAutomation request shape (spec.md §4.4).
type AutomationInput struct {
	ID          string
	Name        string
	Schedule    string
	Script      string
	Enabled     bool
	Description string
	Core        bool
}

// ListAutomations returns every automation in spec order.
func (m *Manager) ListAutomations() ([]stackspec.Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return nil, err
	}
	return spec.Automations, nil
}

// GetAutomation returns the automation with id, and whether it was found.
func (m *Manager) GetAutomation(id string) (stackspec.Automation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return stackspec.Automation{}, false, err
	}
	for _, a := range spec.Automations {
		if a.ID == id {
			return a, true, nil
		}
	}
	return stackspec.Automation{}, false, nil
}

// UpsertAutomation validates input, inserting a new automation or replacing
// the existing one with the same id, then rewrites and re-renders
// (spec.md §4.4). Re-rendering an automation does not itself resync
// schedules; the caller is responsible for invoking automations.
// SyncAutomations afterward with the updated list.
func (m *Manager) UpsertAutomation(input AutomationInput) (stackspec.Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return stackspec.Automation{}, err
	}

	automation := stackspec.Automation{
		ID:          input.ID,
		Name:        input.Name,
		Schedule:    input.Schedule,
		Script:      input.Script,
		Enabled:     input.Enabled,
		Description: input.Description,
		Core:        input.Core,
	}
	if err := stackspec.ValidateAutomation(automation, 0); err != nil {
		return stackspec.Automation{}, err
	}

	replaced := false
	for i, a := range spec.Automations {
		if a.ID == automation.ID {
			spec.Automations[i] = automation
			replaced = true
			break
		}
	}
	if !replaced {
		spec.Automations = append(spec.Automations, automation)
	}

	if err := stackspec.WriteSpec(m.paths.SpecPath, spec); err != nil {
		return stackspec.Automation{}, err
	}
	if _, err := m.renderLocked(spec, "upsertAutomation"); err != nil {
		return automation, err
	}
	return automation, nil
}

// DeleteAutomation removes the automation with id, refusing if it is
// marked core (spec.md §4.4, SPEC_FULL.md's core_automation_immutable
// supplement). Returns whether anything was removed.
func (m *Manager) DeleteAutomation(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return false, err
	}

	idx := -1
	for i, a := range spec.Automations {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}
	if spec.Automations[idx].Core {
		return false, newError("core_automation_immutable_" + id)
	}

	spec.Automations = append(spec.Automations[:idx], spec.Automations[idx+1:]...)
	if err := stackspec.WriteSpec(m.paths.SpecPath, spec); err != nil {
		return false, err
	}
	if _, err := m.renderLocked(spec, "deleteAutomation"); err != nil {
		return true, err
	}
	return true, nil
}
