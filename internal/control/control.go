package control

import "atomic/internal/command"

// Inventory is the machine-readable form of `atomic list --json`.
type Inventory struct {
	TaskFile string            `json:"task_file"`
	Commands []command.Listing `json:"commands"`
	Plugins  []PluginListing   `json:"plugins"`
}

type PluginListing struct {
	Name      string `json:"name"`
	Script    string `json:"script,omitempty"`
	Preferred string `json:"preferred,omitempty"`
	Silent    bool   `json:"silent"`
	Desc      string `json:"desc,omitempty"`
	Error     string `json:"error,omitempty"`
}
