// Package probe checks that the hosts of connection plans accept an SSH
// login, optionally through the plan's bastion.
//
// A check dials the host (or opens a direct-tcpip channel on the bastion),
// completes the SSH handshake and public key authentication, and closes the
// connection. No command is run on the host.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/errgroup"

	"hopper/internal/domain"
)

const (
	DefaultPort        = 22
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 8
)

// Config configures a Prober
type Config struct {
	// User is the login when neither the plan nor the bastion names one
	User    string
	Port    int
	Timeout time.Duration
	// KeyFiles are private keys to offer; unreadable or encrypted keys are skipped
	KeyFiles []string
	// NoAgent disables keys from SSH_AUTH_SOCK
	NoAgent bool
	// KnownHostsFile verifies host keys; empty means ~/.ssh/known_hosts
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
	Concurrency           int
}

// Result is the outcome of probing one plan
type Result struct {
	Host          string           `json:"host"`
	Address       string           `json:"address"`
	Route         domain.RouteKind `json:"route"`
	OK            bool             `json:"ok"`
	Latency       time.Duration    `json:"latency"`
	ServerVersion string           `json:"server_version,omitempty"`
	Err           error            `json:"-"`
}

// Prober performs SSH reachability checks
type Prober struct {
	cfg     Config
	auth    []ssh.AuthMethod
	hostKey ssh.HostKeyCallback
	dialer  *net.Dialer
	// agent is the ssh-agent connection, nil when no agent is used
	agent io.Closer
}

// New builds a prober, loading keys and the known hosts database
func New(cfg Config) (*Prober, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.User == "" {
		cfg.User = os.Getenv("USER")
	}

	p := &Prober{cfg: cfg, dialer: &net.Dialer{Timeout: cfg.Timeout}}
	auth, err := p.authMethods()
	if err != nil {
		p.Close()
		return nil, err
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.auth = auth
	p.hostKey = hostKey
	return p, nil
}

// Close releases the ssh-agent connection
func (p *Prober) Close() error {
	if p.agent == nil {
		return nil
	}
	err := p.agent.Close()
	p.agent = nil
	return err
}

// authMethods collects agent keys and key files
func (p *Prober) authMethods() ([]ssh.AuthMethod, error) {
	cfg := p.cfg
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" && !cfg.NoAgent {
		if conn, err := net.Dial("unix", sock); err == nil {
			p.agent = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			log.Debug().Err(err).Msg("SSH agent unavailable")
		}
	}

	keyFiles := cfg.KeyFiles
	if len(keyFiles) == 0 {
		keyFiles = defaultKeyFiles()
	}
	var signers []ssh.Signer
	for _, path := range keyFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				log.Debug().Str("key", path).Msg("Skipping encrypted key, use the agent")
				continue
			}
			return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if len(methods) == 0 {
		return nil, errors.New("no SSH credentials: start an agent or configure key files")
	}
	return methods, nil
}

func defaultKeyFiles() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var files []string
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		files = append(files, filepath.Join(home, ".ssh", name))
	}
	return files
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHostsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", path, err)
	}
	return cb, nil
}

// hostPort appends the default port unless addr already carries one
func hostPort(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(port))
}

func (p *Prober) clientConfig(user string) *ssh.ClientConfig {
	if user == "" {
		user = p.cfg.User
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            p.auth,
		HostKeyCallback: p.hostKey,
		Timeout:         p.cfg.Timeout,
	}
}

// handshake runs the SSH handshake over conn, aborting when ctx ends
func handshake(ctx context.Context, conn net.Conn, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to establish SSH connection: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// connect opens an authenticated client to addr, relayed by via when set
func (p *Prober) connect(ctx context.Context, addr, user string, via *ssh.Client) (*ssh.Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if via != nil {
		conn, err = via.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = p.dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return handshake(ctx, conn, addr, p.clientConfig(user))
}

// Check probes one plan
func (p *Prober) Check(ctx context.Context, plan domain.ConnectionPlan) Result {
	target := hostPort(plan.Host.Address, p.cfg.Port)
	res := Result{Host: plan.Host.Name, Address: target, Route: plan.Route.Kind}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	start := time.Now()

	var via *ssh.Client
	if plan.ViaBastion() {
		b := plan.Route.Bastion
		bastion, err := p.connect(ctx, hostPort(b.Address, DefaultPort), b.User, nil)
		if err != nil {
			res.Err = fmt.Errorf("bastion %s: %w", b.Address, err)
			return res
		}
		defer bastion.Close()
		via = bastion
	}

	client, err := p.connect(ctx, target, "", via)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer client.Close()

	res.OK = true
	res.ServerVersion = string(client.ServerVersion())
	return res
}

// CheckAll probes plans concurrently and returns results in plan order
func (p *Prober) CheckAll(ctx context.Context, plans []domain.ConnectionPlan) []Result {
	results := make([]Result, len(plans))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, plan := range plans {
		g.Go(func() error {
			results[i] = p.Check(ctx, plan)
			ev := log.Debug()
			if !results[i].OK {
				ev = log.Warn().Err(results[i].Err)
			}
			ev.Str("host", plan.Host.Name).Dur("latency", results[i].Latency).Msg("Probe finished")
			return nil
		})
	}
	_ = g.Wait()

	return results
}
