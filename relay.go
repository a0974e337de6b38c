package smtpagent

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
)

const relayContentType = "application/json"

// Relay forwards one raw client payload to the SMTP service and returns
// whatever response body came back. A nil or empty result with a nil error
// means the service produced nothing; the session sends nothing back in
// that case.
type Relay interface {
	Relay(ctx context.Context, payload []byte) ([]byte, error)
}

// CommandRelay drives an external HTTP client as a subprocess: the payload
// goes down its stdin, the response body comes back on its stdout. This
// keeps the network-facing process free of an in-process HTTP client, the
// same property the original C layer got from shelling out to curl.
type CommandRelay struct {
	bin        string   // HTTP client binary, e.g. "curl"
	args       []string // argument vector selecting POST of stdin to the service
	maxPayload int
}

// NewCommandRelay builds a relay that POSTs stdin to serviceURL with the
// fixed content type, silencing the client's progress output.
func NewCommandRelay(bin, serviceURL string, maxPayload int) *CommandRelay {
	return &CommandRelay{
		bin: bin,
		args: []string{
			"-s", "-X", "POST",
			"-H", "Content-Type: " + relayContentType,
			"--data-binary", "@-",
			serviceURL,
		},
		maxPayload: maxPayload,
	}
}

// Relay spawns the client, writes the payload best-effort, closes stdin to
// signal end of input, and reads up to maxPayload response bytes. The
// subprocess is always reaped, on every path, including when it produced
// nothing. Its exit status is not inspected: absence of output is the only
// failure signal surfaced to the session.
func (r *CommandRelay) Relay(ctx context.Context, payload []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.bin, r.args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, err
	}

	// A short write is not a failure; the client processes what arrived.
	stdin.Write(payload)
	stdin.Close()

	var resp bytes.Buffer
	io.CopyN(&resp, stdout, int64(r.maxPayload))
	// Drain anything past the cap so the subprocess can exit and be reaped.
	io.Copy(io.Discard, stdout)
	cmd.Wait()

	return resp.Bytes(), nil
}

// HTTPRelay performs the POST in-process with net/http. Selectable for
// deployments where spawning an external client is unwanted.
type HTTPRelay struct {
	client     *http.Client
	serviceURL string
	maxPayload int
}

func NewHTTPRelay(serviceURL string, maxPayload int) *HTTPRelay {
	return &HTTPRelay{
		client:     http.DefaultClient,
		serviceURL: serviceURL,
		maxPayload: maxPayload,
	}
}

// Relay POSTs the payload and returns the response body verbatim, capped at
// maxPayload. The status code is not inspected; like the command relay, the
// body is relayed as-is and an empty body means nothing is sent back.
func (r *HTTPRelay) Relay(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", relayContentType)

	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var resp bytes.Buffer
	if _, err := io.CopyN(&resp, res.Body, int64(r.maxPayload)); err != nil && err != io.EOF {
		return nil, err
	}
	return resp.Bytes(), nil
}
