package discovery

import (
	"encoding/json"
	"net"
	"os"

	"github.com/google/uuid"

	"github.com/openxbox/smartglass/pkg/transport"
)

// StoredConsole is the persisted form of a previously discovered console.
type StoredConsole struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	UUID    string `json:"uuid"`
	LiveID  string `json:"liveid"`
}

// SaveConsoleList writes the console list to path as JSON.
func SaveConsoleList(path string, consoles []*Console) error {
	stored := make([]StoredConsole, 0, len(consoles))
	for _, c := range consoles {
		entry := StoredConsole{
			Name:   c.Name,
			UUID:   c.UUID.String(),
			LiveID: c.LiveID,
		}
		if c.Address != nil {
			entry.Address = c.Address.IP.String()
		}
		stored = append(stored, entry)
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadConsoleList reads a console list written by SaveConsoleList.
// Loaded consoles start with unknown status until rediscovered.
func LoadConsoleList(path string) ([]*Console, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stored []StoredConsole
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	consoles := make([]*Console, 0, len(stored))
	for _, entry := range stored {
		console := &Console{
			Name:   entry.Name,
			LiveID: entry.LiveID,
			Status: DeviceStatusUnknown,
		}
		if id, err := uuid.Parse(entry.UUID); err == nil {
			console.UUID = id
		}
		if ip := net.ParseIP(entry.Address); ip != nil {
			console.Address = &net.UDPAddr{IP: ip, Port: transport.Port}
		}
		consoles = append(consoles, console)
	}
	return consoles, nil
}
