package deploy

import (
	"fmt"
	"net"
	"strings"
)

// Credentials authenticate the SSH connection to each host.
type Credentials struct {
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`
}

// Plan is what gets executed on each host: an optional script upload followed
// by a single command chain.
type Plan struct {
	// Script, when non-nil, is streamed to /tmp/start-kiosk.sh before the
	// commands run.
	Script []byte
	// Commands are joined with && and run in one shell.
	Commands []string
	// Terminal marks plans ending in a reboot: the connection dying mid-run
	// is expected and counts as success.
	Terminal bool
	// SuccessMarker, when non-empty, marks the run successful if it appears
	// in stdout or stderr even when the exit code is non-zero.
	SuccessMarker string
}

// SSHSeed configures SSH access on the target as part of a deploy, written
// into /etc/kiosk-client.conf for the client script's setup run.
type SSHSeed struct {
	// Enable turns seeding on explicitly; when nil, seeding is enabled
	// whenever a connection password is available to reuse.
	Enable        *bool  `json:"enable,omitempty"`
	User          string `json:"user,omitempty"`
	Password      string `json:"password,omitempty"`
	AuthorizedKey string `json:"authorizedKey,omitempty"`
	PasswordAuth  string `json:"passwordAuth,omitempty"` // "yes" or "no"
}

// DeployOptions shape the install command chain.
type DeployOptions struct {
	ServerBase string
	RunSetup   bool
	Reboot     bool
	SSH        SSHSeed
}

const remoteScriptPath = "/tmp/start-kiosk.sh"

// sudoPrefix builds the sudo invocation: when a password is available it is
// piped to sudo -S so the run never blocks on a prompt.
func sudoPrefix(password string) string {
	if password == "" {
		return "sudo"
	}
	return fmt.Sprintf(`echo %s | sudo -S -p ""`, shellQuote(password))
}

// shellQuote single-quotes s for safe interpolation into a remote command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RestartPlan reboots the host. Terminal: the reboot tears the session down,
// so reaching the host is the success condition.
func RestartPlan(creds Credentials) Plan {
	return Plan{
		Commands: []string{sudoPrefix(creds.Password) + " reboot"},
		Terminal: true,
	}
}

// DeployPlan installs the embedded client script, writes the client config
// and restarts any running browser so the new config takes effect.
func DeployPlan(creds Credentials, opts DeployOptions) Plan {
	sudo := sudoPrefix(creds.Password)

	lines := configLines(creds, opts)
	quoted := make([]string, len(lines))
	for i, l := range lines {
		quoted[i] = shellQuote(l)
	}
	writeConfig := fmt.Sprintf("printf '%%s\\n' %s | %s tee /etc/kiosk-client.conf > /dev/null",
		strings.Join(quoted, " "), sudo)

	cmds := []string{
		sudo + " mkdir -p /usr/local/bin",
		sudo + " mv " + remoteScriptPath + " /usr/local/bin/start-kiosk.sh",
		sudo + " chown root:root /usr/local/bin/start-kiosk.sh",
		sudo + " chmod +x /usr/local/bin/start-kiosk.sh",
		writeConfig,
	}
	if opts.RunSetup {
		cmds = append(cmds, sudo+" bash /usr/local/bin/start-kiosk.sh")
	}
	// Kill running browsers so the relaunch picks up the new config. Best
	// effort: no browser running is not a failure.
	cmds = append(cmds,
		"pkill -f 'google-chrome' >/dev/null 2>&1 || true",
		"pkill -f 'firefox' >/dev/null 2>&1 || true",
	)
	if opts.Reboot {
		cmds = append(cmds, sudo+" reboot")
	}

	plan := Plan{
		Script:   ClientScript(),
		Commands: cmds,
		Terminal: opts.Reboot,
	}
	if opts.RunSetup {
		plan.SuccessMarker = SuccessMarker
	}
	return plan
}

// configLines builds /etc/kiosk-client.conf. SSH seeding defaults to on when
// a connection password exists, because that password is what the seeded
// account will reuse.
func configLines(creds Credentials, opts DeployOptions) []string {
	lines := []string{fmt.Sprintf("SERVER_BASE=%q", opts.ServerBase)}

	seed := opts.SSH
	enable := creds.Password != ""
	if seed.Enable != nil {
		enable = *seed.Enable
	}
	if !enable {
		return lines
	}

	lines = append(lines, `SSH_ENABLE="true"`)
	user := seed.User
	if user == "" {
		user = creds.Username
	}
	if user != "" {
		lines = append(lines, fmt.Sprintf("SSH_USER=%q", user))
	}
	switch {
	case creds.Password != "":
		lines = append(lines,
			fmt.Sprintf("SSH_PASSWORD=%q", creds.Password),
			`SSH_PASSWORD_AUTH="yes"`,
		)
	case seed.Password != "":
		lines = append(lines,
			fmt.Sprintf("SSH_PASSWORD=%q", seed.Password),
			`SSH_PASSWORD_AUTH="yes"`,
		)
	}
	if seed.AuthorizedKey != "" {
		lines = append(lines, fmt.Sprintf("SSH_AUTHORIZED_KEY=%q", seed.AuthorizedKey))
	}
	if seed.PasswordAuth == "yes" || seed.PasswordAuth == "no" {
		lines = append(lines, fmt.Sprintf("SSH_PASSWORD_AUTH=%q", seed.PasswordAuth))
	}
	return lines
}

// FilterTargets keeps only plausible unicast IPv4 addresses: no multicast,
// no network or broadcast addresses, no empties. Returns ErrNoHosts when
// nothing survives the filter.
func FilterTargets(ips []string) ([]string, error) {
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if validTarget(ip) {
			out = append(out, ip)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoHosts
	}
	return out, nil
}

func validTarget(ip string) bool {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return false
	}
	if v4[0] >= 224 {
		return false
	}
	if v4[3] == 0 || v4[3] == 255 {
		return false
	}
	return true
}
