package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"stargazers/pkg/config"
	"stargazers/pkg/ui"
)

// promptMissing asks for owner, repo and token, offering the configured
// values as defaults
func promptMissing(in io.Reader, out io.Writer, cfg *config.Config) error {
	reader := bufio.NewReader(in)

	owner, err := promptValue(reader, out, "Repository owner", cfg.GitHub.Owner)
	if err != nil {
		return err
	}
	repo, err := promptValue(reader, out, "Repository name", cfg.GitHub.Repo)
	if err != nil {
		return err
	}
	cfg.GitHub.Owner = owner
	cfg.GitHub.Repo = repo

	if cfg.GitHub.Token != "" {
		return nil
	}
	fmt.Fprintf(out, "%s ", ui.Cyan("GitHub token (optional, Enter to skip):"))
	token, err := readSecret(in, reader, out)
	if err != nil {
		return err
	}
	cfg.GitHub.Token = token
	return nil
}

// promptValue reads one line, returning def when the line is empty
func promptValue(reader *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", ui.Cyan(label), def)
	} else {
		fmt.Fprintf(out, "%s: ", ui.Cyan(label))
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}

// readSecret reads without echo when in is a terminal, falling back to a
// plain line read
func readSecret(in io.Reader, reader *bufio.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
