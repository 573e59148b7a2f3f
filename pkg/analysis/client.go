// Package analysis drives an external UCI-compatible engine as an optional
// analysis backend. It never participates in gameplay: the in-process bot
// in pkg/bot is always the opponent a player faces; this client only
// answers GameAnalysisRequest / MoveRecommendationsRequest.
package analysis

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

// Line is a single principal-variation update an engine emits while
// thinking, parsed from a UCI "info" line.
type Line struct {
	Depth    int
	ScoreCP  int
	Mate     bool
	MateIn   int
	PV       []string
}

// Result is the outcome of one analysis request.
type Result struct {
	BestMove string
	Lines    []Line
}

// Client drives a single external engine process over UCI.
type Client struct {
	iox.AsyncCloser

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	mu sync.Mutex // serializes one request at a time; UCI is not concurrent-safe
}

// Launch starts the engine binary at path and performs the UCI handshake.
func Launch(ctx context.Context, path string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("analysis: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("analysis: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("analysis: start %q: %w", path, err)
	}

	c := &Client{
		AsyncCloser: iox.NewAsyncCloser(),
		cmd:         cmd,
		stdin:       stdin,
		stdout:      bufio.NewScanner(stdout),
	}

	if err := c.handshake(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	logw.Infof(ctx, "analysis: engine %v ready", path)
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	if err := c.send("uci"); err != nil {
		return err
	}
	for c.stdout.Scan() {
		if c.stdout.Text() == "uciok" {
			break
		}
	}
	if err := c.stdout.Err(); err != nil {
		return fmt.Errorf("analysis: handshake: %w", err)
	}

	if err := c.send("isready"); err != nil {
		return err
	}
	for c.stdout.Scan() {
		if c.stdout.Text() == "readyok" {
			return nil
		}
	}
	return fmt.Errorf("analysis: engine closed stdout before readyok")
}

func (c *Client) send(line string) error {
	_, err := fmt.Fprintln(c.stdin, line)
	return err
}

// Close terminates the engine process.
func (c *Client) Close() error {
	c.AsyncCloser.Close()
	_ = c.send("quit")
	_ = c.stdin.Close()
	return c.cmd.Wait()
}

// Analyze sets the position (as a FEN string or "startpos") plus a UCI move
// list, searches for the given duration, and returns the resulting best
// move and any "info" lines observed along the way.
func (c *Client) Analyze(ctx context.Context, fenOrStartpos string, moves []string, thinkTime time.Duration) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	posCmd := "position " + fenOrStartpos
	if len(moves) > 0 {
		posCmd += " moves " + strings.Join(moves, " ")
	}
	if err := c.send(posCmd); err != nil {
		return Result{}, err
	}

	if err := c.send(fmt.Sprintf("go movetime %d", thinkTime.Milliseconds())); err != nil {
		return Result{}, err
	}

	var result Result
	for c.stdout.Scan() {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		line := c.stdout.Text()
		switch {
		case strings.HasPrefix(line, "info "):
			if pv, ok := parseInfoLine(line); ok {
				result.Lines = append(result.Lines, pv)
			}
		case strings.HasPrefix(line, "bestmove "):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				result.BestMove = fields[1]
			}
			return result, nil
		}
	}
	if err := c.stdout.Err(); err != nil {
		return result, fmt.Errorf("analysis: read engine output: %w", err)
	}
	return result, fmt.Errorf("analysis: engine closed stdout before bestmove")
}

func parseInfoLine(line string) (Line, bool) {
	fields := strings.Fields(line)
	var l Line
	found := false
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				l.Depth, _ = strconv.Atoi(fields[i+1])
				found = true
			}
		case "cp":
			if i+1 < len(fields) {
				l.ScoreCP, _ = strconv.Atoi(fields[i+1])
				found = true
			}
		case "mate":
			if i+1 < len(fields) {
				l.Mate = true
				l.MateIn, _ = strconv.Atoi(fields[i+1])
				found = true
			}
		case "pv":
			l.PV = append([]string{}, fields[i+1:]...)
			found = true
			i = len(fields)
		}
	}
	return l, found
}
