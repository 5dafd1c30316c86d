package main

import (
	"fmt"
	"os"
	"strings"
)

type targetKind int

const (
	// targetVolumes scans the volumes the OS reports.
	targetVolumes targetKind = iota
	// targetLocal scans one local directory as if it were a volume.
	targetLocal
	// targetRemote scans a directory over SFTP.
	targetRemote
)

type scanTarget struct {
	Kind           targetKind
	LocalPath      string
	SSHDestination string
	RemotePath     string
}

// resolveScanTarget interprets the positional arguments: nothing, a local
// directory, or user@host with an optional remote path. An existing local
// path wins over a name that merely looks like user@host.
func resolveScanTarget(args []string) (scanTarget, error) {
	if len(args) == 0 {
		return scanTarget{Kind: targetVolumes}, nil
	}

	first := args[0]
	if _, err := os.Stat(first); err == nil {
		if len(args) > 1 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for local scan")
		}
		return scanTarget{Kind: targetLocal, LocalPath: first}, nil
	}

	if isRemote, err := validateRemoteTarget(first); isRemote {
		if err != nil {
			return scanTarget{}, err
		}
		if len(args) > 2 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for remote scan")
		}
		remotePath := "."
		if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
			remotePath = args[1]
		}
		return scanTarget{Kind: targetRemote, SSHDestination: first, RemotePath: remotePath}, nil
	}

	if len(args) > 1 {
		return scanTarget{}, fmt.Errorf("too many positional arguments")
	}
	return scanTarget{Kind: targetLocal, LocalPath: first}, nil
}

// validateRemoteTarget reports whether raw is meant as user@host and, if
// so, whether it is well formed. The port belongs in --ssh-port.
func validateRemoteTarget(raw string) (bool, error) {
	if strings.ContainsAny(raw, `/\`) || strings.Count(raw, "@") != 1 {
		return false, nil
	}

	user, host, _ := strings.Cut(raw, "@")
	switch {
	case user == "" || host == "":
		return true, fmt.Errorf("invalid remote target %q: expected user@host", raw)
	case strings.HasPrefix(user, "-") || strings.HasPrefix(host, "-"):
		return true, fmt.Errorf("invalid remote target %q", raw)
	case strings.ContainsAny(raw, " \t\n\r"):
		return true, fmt.Errorf("invalid remote target %q: spaces are not allowed", raw)
	}

	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		switch {
		case end == -1:
			return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		case end == 1:
			return true, fmt.Errorf("invalid remote target %q: empty host", raw)
		case end != len(host)-1:
			if rest := host[end+1:]; strings.HasPrefix(rest, ":") && isAllDigits(rest[1:]) {
				return true, fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
			}
			return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		}
		return true, nil
	}
	if strings.Contains(host, "]") {
		return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
	}
	if _, port, ok := strings.Cut(host, ":"); ok && strings.Count(host, ":") == 1 && isAllDigits(port) {
		return true, fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
	}
	return true, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
