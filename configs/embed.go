// Package configs embeds the commented configuration templates written by
// `amanrag config init`.
package configs

import _ "embed"

// UserConfigTemplate is written to ~/.config/amanrag/config.yaml. It holds
// machine settings: Ollama hosts, models, the server address and data paths.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written to .amanrag.yaml in a project directory.
// It holds retrieval tuning.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
