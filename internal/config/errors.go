// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField marks a YAML key that AppConfig does not define.
	ErrUnknownConfigField = errors.New("unknown config field")
	// ErrUnsupportedFormat marks a config file that is not YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrMultipleDocuments marks a config file with more than one YAML document.
	ErrMultipleDocuments = errors.New("config file contains multiple documents or trailing content")
)
