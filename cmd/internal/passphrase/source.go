package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves a keystore passphrase from a file, an environment
// variable or by prompting the operator. The value is cached after the first
// successful retrieval so repeated calls reuse the same secret.
type Source struct {
	envVar string
	file   string
	prompt io.Writer
	stdin  *os.File

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks file, then envVar,
// before interactively prompting on the terminal. Either may be empty.
func NewSource(envVar, file string) *Source {
	return &Source{
		envVar: strings.TrimSpace(envVar),
		file:   strings.TrimSpace(file),
		prompt: os.Stderr,
		stdin:  os.Stdin,
	}
}

// Get returns the cached passphrase or resolves it if this is the first call.
// File contents lose their trailing newline; environment values are used
// verbatim. Whitespace-only passphrases are rejected to avoid unprotected
// keystores.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.file != "" {
		data, err := os.ReadFile(s.file)
		if err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		value := strings.TrimRight(string(data), "\r\n")
		if strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("passphrase file %s is empty", s.file)
		}
		return value, nil
	}

	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}

	if s.stdin == nil || !term.IsTerminal(int(s.stdin.Fd())) {
		if s.envVar != "" {
			return "", fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
		}
		return "", errors.New("keystore passphrase required and no terminal available")
	}

	fmt.Fprint(s.prompt, "Enter keystore passphrase: ")
	bytes, err := term.ReadPassword(int(s.stdin.Fd()))
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}

	passphrase := string(bytes)
	if strings.TrimSpace(passphrase) == "" {
		return "", errors.New("keystore passphrase cannot be empty")
	}
	return passphrase, nil
}
