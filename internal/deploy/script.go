package deploy

import (
	_ "embed"
	"fmt"
	"regexp"
	"time"
)

// clientScript is the bootstrap installed on every fleet machine. It is
// embedded so the server binary is self-contained; the same bytes serve the
// download endpoint and the SSH upload.
//
//go:embed start-kiosk.sh
var clientScript []byte

// SuccessMarker is printed by the client script at the end of a full setup
// run. A deploy that captures it is treated as successful even when a later
// cleanup command in the chain fails.
const SuccessMarker = "Setup complete!"

// ClientScript returns the embedded client script verbatim.
func ClientScript() []byte {
	return clientScript
}

var (
	serverBaseLineRe = regexp.MustCompile(`(?m)^(\s*SERVER_BASE=)"[^"]*"`)
	shebangRe        = regexp.MustCompile(`(?m)^#!/bin/bash\n`)
)

// TemplatedScript returns the client script with serverBase injected into
// its SERVER_BASE assignment, plus a generation stamp under the shebang so a
// downloaded copy is distinguishable from the tracked one.
func TemplatedScript(serverBase string, now time.Time) []byte {
	content := serverBaseLineRe.ReplaceAllFunc(clientScript, func(m []byte) []byte {
		prefix := serverBaseLineRe.FindSubmatch(m)[1]
		return append(append([]byte(nil), prefix...), []byte(`"`+serverBase+`"`)...)
	})

	header := fmt.Sprintf("# --- Generated by kioskd at %s ---\n# SERVER_BASE=%s\n",
		now.UTC().Format(time.RFC3339), serverBase)
	return shebangRe.ReplaceAll(content, []byte("#!/bin/bash\n"+header))
}
