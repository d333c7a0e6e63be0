package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
)

// HostResult is the outcome of one plan on one host.
type HostResult struct {
	Host   string `json:"host"`
	OK     bool   `json:"ok"`
	Code   int    `json:"code,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Executor runs plans against fleet hosts over SSH.
//
// Host keys are not verified: targets are freshly imaged machines on the
// local network whose keys change on every rebuild, and the fleet operator
// supplies the credentials per run.
type Executor struct {
	connectTimeout time.Duration
	logger         *slog.Logger

	runHost func(host string, creds Credentials, plan Plan) HostResult // test hook
}

// NewExecutor builds an executor with the configured connect timeout.
func NewExecutor(cfg config.DeployConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		connectTimeout: cfg.ConnectTimeoutDuration(),
		logger:         logger,
	}
	e.runHost = e.sshRunHost
	return e
}

// Run executes the plan on every host sequentially. Hosts are fully
// isolated: a failure is recorded in that host's result and the rollout
// carries on.
func (e *Executor) Run(hosts []string, creds Credentials, plan Plan) []HostResult {
	results := make([]HostResult, 0, len(hosts))
	for _, host := range hosts {
		result := e.runHost(host, creds, plan)
		if result.OK {
			e.logger.Info("remote execution succeeded", "host", result.Host)
		} else {
			e.logger.Warn("remote execution failed", "host", result.Host, "error", result.Error)
		}
		results = append(results, result)
	}
	return results
}

func (e *Executor) sshRunHost(host string, creds Credentials, plan Plan) HostResult {
	label := creds.Username + "@" + host
	result := HostResult{Host: label}

	clientCfg, err := e.clientConfig(creds)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(host, "22"), clientCfg)
	if err != nil {
		result.Error = fmt.Sprintf("connecting: %v", err)
		return result
	}
	defer client.Close()

	if plan.Script != nil {
		if err := uploadScript(client, plan.Script); err != nil {
			result.Error = fmt.Sprintf("uploading script: %v", err)
			return result
		}
	}

	stdout, stderr, code, runErr := runCommands(client, plan.Commands)
	result.Stdout = stdout
	result.Stderr = stderr
	result.Code = code

	switch {
	case plan.Terminal:
		// The command chain ends the connection (reboot); getting this far
		// means the host accepted it.
		result.OK = true
	case runErr == nil:
		result.OK = true
	case plan.SuccessMarker != "" &&
		(strings.Contains(stdout, plan.SuccessMarker) || strings.Contains(stderr, plan.SuccessMarker)):
		result.OK = true
	default:
		result.Error = runErr.Error()
	}
	return result
}

func (e *Executor) clientConfig(creds Credentials) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod
	if creds.PrivateKeyPath != "" {
		key, err := os.ReadFile(creds.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("deploy: no authentication method provided")
	}

	return &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.connectTimeout,
	}, nil
}

// uploadScript streams the script to the remote /tmp path over a plain exec
// session, avoiding an SFTP dependency on the target.
func uploadScript(client *ssh.Client, script []byte) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	session.Stdin = bytes.NewReader(script)
	return session.Run("cat > " + remoteScriptPath)
}

// runCommands joins the plan's commands and runs them in one session from
// /tmp. Returns the combined exit information; code is -1 when the session
// ended without an exit status (connection torn down mid-run).
func runCommands(client *ssh.Client, commands []string) (stdout, stderr string, code int, err error) {
	session, err := client.NewSession()
	if err != nil {
		return "", "", -1, err
	}
	defer session.Close()

	var outBuf, errBuf bytes.Buffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	cmd := "cd /tmp && " + strings.Join(commands, " && ")
	err = session.Run(cmd)

	code = 0
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitStatus()
		} else {
			code = -1
		}
	}
	return outBuf.String(), errBuf.String(), code, err
}
