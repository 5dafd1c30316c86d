package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

// keyFiles are the private keys tried from ~/.ssh, in order.
var keyFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// Prompter asks the user questions during connection setup.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)
	// Password reads a secret without echo.
	Password(prompt string) (string, error)
}

// terminalPrompter prompts on stderr and reads from stdin, which must be a
// terminal.
type terminalPrompter struct{}

func (terminalPrompter) Confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("cannot ask for confirmation: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (terminalPrompter) Password(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot ask for password: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func parseTarget(target string) (user, host string, err error) {
	user, host, ok := strings.Cut(strings.TrimSpace(target), "@")
	if !ok || user == "" || host == "" {
		return "", "", fmt.Errorf("remote target %q: want user@host", target)
	}
	return user, host, nil
}

// hostKeys verifies server keys against ~/.ssh/known_hosts, asking before
// trusting a new or changed key.
type hostKeys struct {
	file   string
	host   string
	port   int
	batch  bool
	prompt Prompter
}

func newHostKeys(host string, port int, batch bool, prompt Prompter) (*hostKeys, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate known_hosts: %w", err)
	}
	file, err := ensureKnownHosts(filepath.Join(home, ".ssh"))
	if err != nil {
		return nil, err
	}
	return &hostKeys{file: file, host: host, port: port, batch: batch, prompt: prompt}, nil
}

func ensureKnownHosts(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	file := filepath.Join(dir, "known_hosts")
	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("open known_hosts: %w", err)
	}
	_ = f.Close()
	return file, nil
}

func (h *hostKeys) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	verify, err := knownhosts.New(h.file)
	if err != nil {
		return fmt.Errorf("load known_hosts: %w", err)
	}
	err = verify(hostname, remote, key)
	if err == nil {
		return nil
	}
	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) {
		return fmt.Errorf("verify host key: %w", err)
	}

	addr := knownHostAddress(h.host, h.port)
	fp := ssh.FingerprintSHA256(key)

	if len(keyErr.Want) == 0 {
		if h.batch {
			return fmt.Errorf("unknown host key %s for %s", fp, addr)
		}
		ok, err := h.prompt.Confirm(fmt.Sprintf(
			"Host %s is not known.\n%s key fingerprint is %s.\nTrust it and connect (yes/no)? ",
			addr, key.Type(), fp))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("host key for %s not trusted", addr)
		}
		return h.store(key, false)
	}

	want := make([]string, len(keyErr.Want))
	for i, k := range keyErr.Want {
		want[i] = ssh.FingerprintSHA256(k.Key)
	}
	if h.batch {
		return fmt.Errorf("host key mismatch for %s: have %s, got %s", addr, strings.Join(want, ", "), fp)
	}
	ok, err := h.prompt.Confirm(fmt.Sprintf(
		"WARNING: the host key for %s has changed.\nKnown: %s\nOffered: %s\nReplace the stored key and connect (yes/no)? ",
		addr, strings.Join(want, ", "), fp))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("host key mismatch for %s", addr)
	}
	return h.store(key, true)
}

// store records key for the host, dropping older entries when replace is set.
func (h *hostKeys) store(key ssh.PublicKey, replace bool) error {
	data, err := os.ReadFile(h.file)
	if err != nil {
		return fmt.Errorf("read known_hosts: %w", err)
	}
	if replace {
		data = dropHostLines(data, h.host, h.port)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	data = append(data, knownhosts.Line([]string{knownHostAddress(h.host, h.port)}, key)...)
	data = append(data, '\n')

	if err := os.WriteFile(h.file, data, 0o600); err != nil {
		return fmt.Errorf("write known_hosts: %w", err)
	}
	return nil
}

func knownHostAddress(host string, port int) string {
	if port == defaultPort {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

// dropHostLines removes known_hosts lines naming host on port.
func dropHostLines(data []byte, host string, port int) []byte {
	names := map[string]bool{fmt.Sprintf("[%s]:%d", host, port): true}
	if port == defaultPort {
		names[host] = true
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "@") {
			fields = fields[1:]
		}
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			out = append(out, line)
			continue
		}
		match := false
		for _, name := range strings.Split(fields[0], ",") {
			if names[name] {
				match = true
				break
			}
		}
		if !match {
			out = append(out, line)
		}
	}
	return []byte(strings.Join(out, "\n"))
}

// authMethods offers the agent, then key files, then (unless batch) a
// password. Batch mode with nothing to offer is an error.
func authMethods(user, host string, batch bool, prompt Prompter) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK")); sock != "" {
		methods = append(methods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			return agent.NewClient(conn).Signers()
		}))
	}

	if signers := keySigners(); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if !batch {
		pw := &cachedPassword{prompt: prompt, label: fmt.Sprintf("%s@%s's password: ", user, host)}
		methods = append(methods,
			ssh.PasswordCallback(pw.get),
			ssh.KeyboardInteractive(pw.challenge),
		)
	}

	if len(methods) == 0 {
		return nil, errors.New("no ssh auth method available: start ssh-agent or add a key to ~/.ssh")
	}
	return methods, nil
}

func keySigners() []ssh.Signer {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var signers []ssh.Signer
	for _, name := range keyFiles {
		pem, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		// Passphrase-protected keys are left to the agent.
		if s, err := ssh.ParsePrivateKey(pem); err == nil {
			signers = append(signers, s)
		}
	}
	return signers
}

// cachedPassword asks once and reuses the answer for later challenges.
type cachedPassword struct {
	prompt Prompter
	label  string

	mu  sync.Mutex
	pw  string
	set bool
}

func (c *cachedPassword) get() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return c.pw, nil
	}
	pw, err := c.prompt.Password(c.label)
	if err != nil {
		return "", err
	}
	c.pw, c.set = pw, true
	return pw, nil
}

func (c *cachedPassword) challenge(_, _ string, questions []string, echos []bool) ([]string, error) {
	answers := make([]string, len(questions))
	for i := range questions {
		if i < len(echos) && echos[i] {
			continue
		}
		pw, err := c.get()
		if err != nil {
			return nil, err
		}
		answers[i] = pw
	}
	return answers, nil
}
