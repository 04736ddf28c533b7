package shell

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// ExecError is returned when a remote command exits non-zero.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("remote command exit %d: %s", e.ExitCode, e.Stderr)
}

// ErrChannelUnavailable wraps connection and session establishment failures.
var ErrChannelUnavailable = errors.New("shell channel unavailable")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyFile  string
	Timeout  time.Duration
}

// Channel is a command channel to the robot's root shell. The SSH
// connection is established on first use and reused until Reconfigure
// or Close tears it down.
type Channel struct {
	mu     sync.Mutex
	cfg    Config
	client *ssh.Client

	execFn func(cmd string) (string, error) // test hook; nil means SSH
}

func NewChannel(cfg Config) *Channel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Channel{cfg: cfg}
}

// Reconfigure replaces the connection parameters and drops any open
// connection so the next call re-establishes with the new settings.
func (c *Channel) Reconfigure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c.cfg = cfg
	c.teardownLocked()
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Channel) teardownLocked() {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

func (c *Channel) connectLocked() (*ssh.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	auth := []ssh.AuthMethod{}
	if c.cfg.KeyFile != "" {
		key, err := os.ReadFile(c.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read key file: %v", ErrChannelUnavailable, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: parse key file: %v", ErrChannelUnavailable, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.cfg.Password != "" {
		auth = append(auth, ssh.Password(c.cfg.Password))
	}

	sshCfg := &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: auth,
		// Robots on the local network have no provisioned host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.Timeout,
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	client, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrChannelUnavailable, addr, err)
	}
	c.client = client
	return client, nil
}

// Execute runs one command on the robot and returns its stdout. A
// non-zero exit yields *ExecError carrying the exit code and stderr.
func (c *Channel) Execute(cmd string) (string, error) {
	if c.execFn != nil {
		return c.execFn(cmd)
	}
	return c.sshExec(cmd)
}

func (c *Channel) sshExec(cmd string) (string, error) {
	c.mu.Lock()
	client, err := c.connectLocked()
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		// Stale connection; force re-dial on next call.
		c.mu.Lock()
		c.teardownLocked()
		c.mu.Unlock()
		return "", fmt.Errorf("%w: new session: %v", ErrChannelUnavailable, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Run(cmd); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExecError{
				ExitCode: exitErr.ExitStatus(),
				Stderr:   stderr.String(),
			}
		}
		c.mu.Lock()
		c.teardownLocked()
		c.mu.Unlock()
		return stdout.String(), fmt.Errorf("%w: run: %v", ErrChannelUnavailable, err)
	}
	return stdout.String(), nil
}

// Reboot restarts the robot. The channel dying once the command is in
// flight is the expected acknowledgment; an unreachable host is not,
// so the channel is proven with a no-op first. A clean non-zero exit
// (reboot refused) is also reported.
func (c *Channel) Reboot() error {
	if _, err := c.Execute("true"); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}

	_, err := c.Execute("reboot")

	c.mu.Lock()
	c.teardownLocked()
	c.mu.Unlock()

	var exitErr *ExecError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("reboot: %w", exitErr)
	}
	return nil
}
