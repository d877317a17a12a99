// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package credentials stores agent-provider API keys and PATs in the OS
// keychain rather than in plain configuration files.
package credentials

import (
	"fmt"
	"log"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "agents-in-a-box"

// Key names one of the secrets this package manages.
type Key string

const (
	KeyAnthropicAPIKey Key = "anthropic_api_key"
	KeyOpenAIAPIKey    Key = "openai_api_key"
	KeyGeminiAPIKey    Key = "gemini_api_key"
	KeyGithubPAT       Key = "github_pat"
)

// Store saves value under key in the OS keychain.
func Store(key Key, value string) error {
	if err := keyring.Set(serviceName, string(key), value); err != nil {
		return fmt.Errorf("store credential %s: %w", key, err)
	}
	log.Printf("Stored credential: %s", key)
	return nil
}

// Get retrieves the value for key. A missing entry returns ("", false, nil).
func Get(key Key) (string, bool, error) {
	value, err := keyring.Get(serviceName, string(key))
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("retrieve credential %s: %w", key, err)
	}
	return value, true, nil
}

// Delete removes the entry for key. Deleting a missing entry is not an
// error.
func Delete(key Key) error {
	if err := keyring.Delete(serviceName, string(key)); err != nil {
		if err == keyring.ErrNotFound {
			return nil
		}
		return fmt.Errorf("delete credential %s: %w", key, err)
	}
	return nil
}

// Has reports whether key is configured.
func Has(key Key) bool {
	_, ok, err := Get(key)
	return err == nil && ok
}

// StoreAnthropicAPIKey validates and stores the Anthropic API key.
func StoreAnthropicAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if !strings.HasPrefix(apiKey, "sk-ant-") {
		log.Printf("Warning: API key doesn't start with 'sk-ant-' - may be invalid")
	}
	return Store(KeyAnthropicAPIKey, apiKey)
}

// MaskedAnthropicAPIKey returns a UI-safe, partially-masked view of the
// configured Anthropic API key, or "Not configured" if none is set.
func MaskedAnthropicAPIKey() string {
	value, ok, err := Get(KeyAnthropicAPIKey)
	if err != nil || !ok {
		return "Not configured"
	}
	if len(value) > 12 {
		return value[:12] + "••••••••"
	}
	return "••••••••"
}
