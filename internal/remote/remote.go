// Package remote scans volumes on other hosts over SSH and SFTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/sadopc/volscan/internal/volume"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 15 * time.Second
)

// Config configures an SSH connection.
type Config struct {
	// Target is "user@host".
	Target string
	// Port defaults to 22.
	Port int
	// BatchMode disables every interactive prompt.
	BatchMode bool
	// Timeout bounds dialing and the SSH handshake.
	Timeout time.Duration
	// ScanTimeout bounds a whole scan. Zero means no limit.
	ScanTimeout time.Duration
	// Prompter answers host-key and password questions. Nil uses the terminal.
	Prompter Prompter
}

// ScanContext derives the context a scan over this connection should use.
func (c Config) ScanContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.ScanTimeout > 0 {
		return context.WithTimeout(ctx, c.ScanTimeout)
	}
	return context.WithCancel(ctx)
}

// sftpClient is the subset of *sftp.Client the package uses.
type sftpClient interface {
	ReadDir(path string) ([]os.FileInfo, error)
	Stat(path string) (os.FileInfo, error)
	RealPath(path string) (string, error)
	StatVFS(path string) (*sftp.StatVFS, error)
}

// Client is an open SFTP session.
type Client struct {
	host   string
	user   string
	sftp   sftpClient
	closer io.Closer
}

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = ssh.NewClientConn

// Dial connects to cfg.Target and starts the SFTP subsystem.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ssh port %d out of range", cfg.Port)
	}
	user, host, err := parseTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	prompt := cfg.Prompter
	if prompt == nil {
		prompt = terminalPrompter{}
	}

	hk, err := newHostKeys(host, cfg.Port, cfg.BatchMode, prompt)
	if err != nil {
		return nil, err
	}
	auth, err := authMethods(user, host, cfg.BatchMode, prompt)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	sshClient, err := connectSSH(dialCtx, addr, &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hk.check,
		Timeout:         timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh connect %s: %w", addr, err)
	}

	sc, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}

	return &Client{
		host:   host,
		user:   user,
		sftp:   sc,
		closer: closers{sc, sshClient},
	}, nil
}

// connectSSH dials addr and performs the handshake. Cancelling ctx closes
// the connection, which aborts a handshake in progress.
func connectSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	if !stop() {
		if err == nil {
			_ = c.Close()
		}
		return nil, ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// Source returns a scanner source over this client.
func (c *Client) Source() *SFTPSource {
	return &SFTPSource{client: c.sftp}
}

// Volume describes remotePath on the remote host as a volume. The path is
// resolved against the login directory; "" means the login directory.
func (c *Client) Volume(remotePath string) (volume.Volume, error) {
	root := cleanRemotePath(remotePath)
	if resolved, err := c.sftp.RealPath(root); err == nil {
		root = cleanRemotePath(resolved)
	}

	info, err := c.sftp.Stat(root)
	if err != nil {
		return volume.Volume{}, fmt.Errorf("stat remote %s: %w", root, err)
	}
	if !info.IsDir() {
		return volume.Volume{}, fmt.Errorf("remote %s is not a directory", root)
	}

	v := volume.Volume{
		RootPath: root,
		Label:    c.user + "@" + c.host,
		FSType:   "sftp",
		Ready:    true,
	}
	if st, err := c.sftp.StatVFS(root); err == nil && st != nil {
		v.TotalSize = st.TotalSpace()
		v.FreeSpace = st.FreeSpace()
	}
	return v, nil
}

// Lister returns a volume lister holding just remotePath.
func (c *Client) Lister(remotePath string) volume.Lister {
	return volume.ListerFunc(func() ([]volume.Volume, error) {
		v, err := c.Volume(remotePath)
		if err != nil {
			return nil, err
		}
		return []volume.Volume{v}, nil
	})
}

// Close ends the SFTP and SSH sessions.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
