package chart

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jonathan/askdb/internal/types"
)

// ChildEnv marks a process started to evaluate chart code
const ChildEnv = "ASKDB_CHART_SANDBOX"

type childRequest struct {
	Code    string   `json:"code"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type childResponse struct {
	HTML    string `json:"html,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewIsolatedSandbox creates a Sandbox whose Render starts name with args for
// every evaluation. The command must call ServeChild when ChildEnv is set, so
// a stack overflow or out of memory in chart code ends the child instead of the
// caller.
func NewIsolatedSandbox(name string, args ...string) *Sandbox {
	return &Sandbox{command: append([]string{name}, args...)}
}

// IsSandboxChild reports whether this process was started by an isolated sandbox
func IsSandboxChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// ServeChild reads one request from r, renders it in process and writes the
// response to w.
func ServeChild(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var req childRequest
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("failed to decode chart request: %w", err)
	}

	frame := NewFrame(&types.ResultSet{Columns: req.Columns, Rows: req.Rows})
	var resp childResponse
	html, err := NewSandbox().Render(ctx, req.Code, frame)
	var sbErr *SandboxError
	switch {
	case errors.As(err, &sbErr):
		resp.Stage, resp.Message = sbErr.Stage, sbErr.Message
	case err != nil:
		resp.Stage, resp.Message = StageRuntime, fmt.Sprintf("runtime error: %v", err)
	default:
		resp.HTML = html
	}
	return json.NewEncoder(w).Encode(resp)
}

func (s *Sandbox) renderInChild(ctx context.Context, code string, frame *Frame) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", &SandboxError{Stage: StageScan, Message: "no code found in response"}
	}
	if err := Scan(code); err != nil {
		return "", err
	}

	req, err := json.Marshal(childRequest{Code: code, Columns: frame.Columns(), Rows: childRows(frame.rs.Rows)})
	if err != nil {
		return "", fmt.Errorf("failed to encode chart request: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Env = append(os.Environ(), ChildEnv+"=1")
	cmd.Stdin = bytes.NewReader(req)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", fmt.Errorf("failed to start chart process: %w", runErr)
	}

	var resp childResponse
	if runErr == nil && json.Unmarshal(stdout.Bytes(), &resp) == nil {
		if resp.Stage != "" {
			return "", &SandboxError{Stage: resp.Stage, Message: resp.Message}
		}
		return resp.HTML, nil
	}
	return "", &SandboxError{
		Stage:   StageRuntime,
		Message: "runtime error: chart process crashed: " + crashReason(stderr.String(), runErr),
		Cause:   runErr,
	}
}

// crashReason picks the runtime's fatal line out of the child's stderr
func crashReason(stderr string, runErr error) string {
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "fatal error:") || strings.HasPrefix(line, "panic:") {
			return line
		}
	}
	if runErr != nil {
		return runErr.Error()
	}
	return "no result was produced"
}

// childRows converts cells to JSON values that decode back to the same text and
// numbers in the child.
func childRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = childCell(v)
		}
		out[i] = cells
	}
	return out
}

func childCell(v any) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case []byte:
		return string(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Sprint(x)
		}
		return json.Number(fmt.Sprint(x))
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Sprint(x)
		}
		return json.Number(fmt.Sprint(x))
	case int, int64:
		return json.Number(fmt.Sprint(x))
	default:
		return fmt.Sprint(x)
	}
}
