// Package credentials resolves the bearer tokens used when talking to the
// remote platforms. A missing credential is not an error: callers branch on
// the returned presence flag and select the anonymous path instead.
package credentials

import (
	"bufio"
	"os"
	"strings"
)

const (
	EnvTrackingAPIKey = "WANDB_API_KEY"
	EnvHubToken       = "HF_TOKEN"
	EnvHubTokenLegacy = "HUGGINGFACE_TOKEN"
)

// Source resolves named credentials. The process environment always wins
// over values read from a credential file.
type Source struct {
	fileValues map[string]string
	lookup     func(string) (string, bool)
}

// FromEnvironment returns a Source backed only by the process environment.
func FromEnvironment() *Source {
	return &Source{
		fileValues: map[string]string{},
		lookup:     os.LookupEnv,
	}
}

// FromEnvironmentAndFile layers a KEY=VALUE credential file under the process
// environment. A missing file is not an error; a present but unreadable file
// is.
func FromEnvironmentAndFile(path string) (*Source, error) {
	values, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	return &Source{
		fileValues: values,
		lookup:     os.LookupEnv,
	}, nil
}

// newSource is used by tests to avoid touching the process environment.
func newSource(fileValues map[string]string, lookup func(string) (string, bool)) *Source {
	if fileValues == nil {
		fileValues = map[string]string{}
	}
	return &Source{fileValues: fileValues, lookup: lookup}
}

// Get resolves one named credential. Empty values are treated as absent.
func (s *Source) Get(name string) (string, bool) {
	if value, ok := s.lookup(name); ok && value != "" {
		return value, true
	}
	if value, ok := s.fileValues[name]; ok && value != "" {
		return value, true
	}
	return "", false
}

// Tracking returns the experiment tracking API key, if any.
func (s *Source) Tracking() (string, bool) {
	return s.Get(EnvTrackingAPIKey)
}

// Hub returns the hub token, preferring the current variable name over the
// legacy one.
func (s *Source) Hub() (string, bool) {
	if token, ok := s.Get(EnvHubToken); ok {
		return token, true
	}
	return s.Get(EnvHubTokenLegacy)
}

// parseFile reads a KEY=VALUE file line by line. Lines starting with '#' and
// lines without '=' are ignored; values may contain further '=' characters.
func parseFile(path string) (map[string]string, error) {
	values := map[string]string{}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
