package coordinator

import (
	"encoding/json"
	"os"
	"strings"
)

// JoinMemory remembers the last invite code this client saw and the display
// name used with it, so a stale link never auto-claims a seat: the caller
// prompts for a name exactly once per distinct code. It is a UX convenience
// only; seat authorization is always re-derived from the record.
type JoinMemory struct {
	path string
}

type joinMemoryFile struct {
	LastCode   string `json:"last_code"`
	PlayerName string `json:"player_name"`
}

func OpenJoinMemory(path string) *JoinMemory { return &JoinMemory{path: path} }

// NeedsPrompt reports whether code differs from the last remembered one.
func (m *JoinMemory) NeedsPrompt(code string) bool {
	return !strings.EqualFold(strings.TrimSpace(code), m.load().LastCode)
}

// PlayerName returns the remembered display name, empty if never stored.
func (m *JoinMemory) PlayerName() string { return m.load().PlayerName }

// Remember stores the code/name pair after a successful prompt.
func (m *JoinMemory) Remember(code, name string) error {
	raw, err := json.Marshal(&joinMemoryFile{
		LastCode:   strings.ToUpper(strings.TrimSpace(code)),
		PlayerName: strings.TrimSpace(name),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, raw, 0o600)
}

func (m *JoinMemory) load() joinMemoryFile {
	var f joinMemoryFile
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return f
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return joinMemoryFile{}
	}
	f.LastCode = strings.ToUpper(strings.TrimSpace(f.LastCode))
	return f
}
