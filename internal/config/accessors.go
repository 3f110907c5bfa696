package config

import (
	"slices"

	"github.com/cockroachdb/errors"

	"llmfill/internal/schema"
)

// Client returns the active LLM client name.
func (m *Manager) Client() string {
	return m.Load().Client
}

// SetClient switches the active LLM client.
func (m *Manager) SetClient(client string) error {
	if client == "" {
		return errors.New("client name is required")
	}
	return m.Update(func(cfg *schema.Config) {
		cfg.Client = client
	})
}

// APIKey returns the stored API key for a client, or "" when none is
// configured. An empty client means the active one.
func (m *Manager) APIKey(client string) string {
	cfg := m.Load()
	if client == "" {
		client = cfg.Client
	}
	return cfg.APIKeys[client]
}

// SetAPIKey stores an API key for a client. An empty client means the
// active one.
func (m *Manager) SetAPIKey(client, key string) error {
	return m.Update(func(cfg *schema.Config) {
		if client == "" {
			client = cfg.Client
		}
		if cfg.APIKeys == nil {
			cfg.APIKeys = map[string]string{}
		}
		cfg.APIKeys[client] = key
	})
}

// Model returns the selected model for a client, or "" when none has been
// chosen. An empty client means the active one.
func (m *Manager) Model(client string) string {
	cfg := m.Load()
	if client == "" {
		client = cfg.Client
	}
	return cfg.Models[client]
}

// SetModel selects a model for a client (the active one when client is "")
// and remembers it in the client's model list.
func (m *Manager) SetModel(client, model string) error {
	if model == "" {
		return errors.New("model name is required")
	}
	return m.Update(func(cfg *schema.Config) {
		if client == "" {
			client = cfg.Client
		}
		if cfg.Models == nil {
			cfg.Models = map[string]string{}
		}
		cfg.Models[client] = model
		rememberModel(cfg, client, model)
	})
}

// RememberModel adds a model to a client's remembered list without
// selecting it.
func (m *Manager) RememberModel(client, model string) error {
	if model == "" {
		return errors.New("model name is required")
	}
	return m.Update(func(cfg *schema.Config) {
		if client == "" {
			client = cfg.Client
		}
		rememberModel(cfg, client, model)
	})
}

func rememberModel(cfg *schema.Config, client, model string) {
	if cfg.ModelLists == nil {
		cfg.ModelLists = map[string][]string{}
	}
	if !slices.Contains(cfg.ModelLists[client], model) {
		cfg.ModelLists[client] = append(cfg.ModelLists[client], model)
	}
}

// ModelList returns the remembered models for the active client.
func (m *Manager) ModelList() []string {
	cfg := m.Load()
	return cfg.ModelLists[cfg.Client]
}

// Temperature returns the sampling temperature.
func (m *Manager) Temperature() float64 {
	return m.Load().Temperature
}

// MaxLength returns the maximum generated field length in characters.
func (m *Manager) MaxLength() int {
	return m.Load().MaxLength
}

// MaxPromptTokens returns the prompt token budget.
func (m *Manager) MaxPromptTokens() int {
	return m.Load().MaxPromptTokens
}

// GlobalPrompt returns the prompt preamble shared by every note type.
func (m *Manager) GlobalPrompt() string {
	return m.Load().GlobalPrompt
}

// Shortcut returns the keyboard shortcut that triggers a fill.
func (m *Manager) Shortcut() string {
	return m.Load().Shortcut
}

// SetShortcut replaces the fill shortcut.
func (m *Manager) SetShortcut(shortcut string) error {
	if shortcut == "" {
		return errors.New("shortcut is required")
	}
	return m.Update(func(cfg *schema.Config) {
		cfg.Shortcut = shortcut
	})
}

// NotePrompt returns the prompt configuration for a note type, falling back
// to the default entry. The second return is false when neither the type
// nor the default is configured.
func (m *Manager) NotePrompt(noteType string) (schema.NotePrompt, bool) {
	return m.Load().NotePrompt(noteType)
}

// SetNotePrompt stores the prompt configuration for a note type.
func (m *Manager) SetNotePrompt(noteType string, p schema.NotePrompt) error {
	if noteType == "" {
		return errors.New("note type is required")
	}
	return m.Update(func(cfg *schema.Config) {
		if cfg.NotePrompts == nil {
			cfg.NotePrompts = map[string]schema.NotePrompt{}
		}
		cfg.NotePrompts[noteType] = p
	})
}

// UpdateFieldRules returns the rules for filling fields of existing notes
// of the given type. Fields marked create-only are excluded.
func (m *Manager) UpdateFieldRules(noteType string) map[string]schema.FieldRule {
	p, ok := m.NotePrompt(noteType)
	if !ok {
		return nil
	}
	return p.UpdateRules()
}

// CreateFieldRules returns the rules for filling fields of a note being
// created, including create-only fields.
func (m *Manager) CreateFieldRules(noteType string) map[string]schema.FieldRule {
	p, ok := m.NotePrompt(noteType)
	if !ok {
		return nil
	}
	return p.CreateRules()
}
