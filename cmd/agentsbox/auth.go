// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wingedpig/agentsbox/internal/credentials"
)

// authKeys maps the user-facing credential names to keychain keys and the
// environment variables honored as a fallback when the keychain has no
// entry.
var authKeys = []struct {
	name   string
	key    credentials.Key
	envVar string
}{
	{"anthropic", credentials.KeyAnthropicAPIKey, "ANTHROPIC_API_KEY"},
	{"openai", credentials.KeyOpenAIAPIKey, "OPENAI_API_KEY"},
	{"gemini", credentials.KeyGeminiAPIKey, "GEMINI_API_KEY"},
	{"github", credentials.KeyGithubPAT, "GITHUB_TOKEN"},
}

// cmdAuth manages provider credentials in the OS keychain. With no flags
// it prints, for each credential, whether it is stored in the keychain,
// taken from its environment variable, or not configured; secret values
// are not printed.
func cmdAuth(args []string) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	set := fs.String("set", "", "store a credential (anthropic|openai|gemini|github); the secret is read from the terminal")
	del := fs.String("delete", "", "remove a stored credential")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *set != "":
		return authSet(*set)
	case *del != "":
		entry, err := lookupAuthKey(*del)
		if err != nil {
			return err
		}
		if err := credentials.Delete(entry.key); err != nil {
			return err
		}
		fmt.Printf("Removed %s credential.\n", entry.name)
		return nil
	default:
		for _, entry := range authKeys {
			status := "not configured"
			if credentials.Has(entry.key) {
				status = "stored in keychain"
			} else if os.Getenv(entry.envVar) != "" {
				status = "from $" + entry.envVar
			}
			fmt.Printf("  %-10s %s\n", entry.name, status)
		}
		return nil
	}
}

func authSet(name string) error {
	entry, err := lookupAuthKey(name)
	if err != nil {
		return err
	}

	fmt.Printf("Enter %s credential (input hidden): ", entry.name)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	value := strings.TrimSpace(string(secret))
	if value == "" {
		return fmt.Errorf("empty credential not stored")
	}

	if entry.key == credentials.KeyAnthropicAPIKey {
		return credentials.StoreAnthropicAPIKey(value)
	}
	return credentials.Store(entry.key, value)
}

func lookupAuthKey(name string) (struct {
	name   string
	key    credentials.Key
	envVar string
}, error) {
	for _, entry := range authKeys {
		if entry.name == strings.ToLower(name) {
			return entry, nil
		}
	}
	names := make([]string, len(authKeys))
	for i, entry := range authKeys {
		names[i] = entry.name
	}
	return authKeys[0], fmt.Errorf("unknown credential %q (expected one of %s)", name, strings.Join(names, ", "))
}
