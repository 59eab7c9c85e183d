package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// sseDonePayload terminates a chat-completion event stream.
const sseDonePayload = "[DONE]"

type sseChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// scanSSE consumes a line-oriented "data: " event stream of chat-completion
// chunks, forwarding each non-empty delta content to emit and accumulating the
// full text. Lines that are not valid JSON are skipped: parsing is best-effort
// per fragment, never all-or-nothing per stream.
func scanSSE(ctx context.Context, r io.Reader, emit DeltaFunc) (string, error) {
	var full strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return full.String(), err
		}
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == sseDonePayload {
			break
		}
		var chunk sseChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		full.WriteString(content)
		if emit != nil {
			if err := emit(content); err != nil {
				return full.String(), err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return full.String(), &TransportError{Op: "read stream", Err: err}
	}
	return full.String(), nil
}

type ndjsonChunk struct {
	Response string `json:"response"`
}

// scanNDJSON consumes newline-delimited JSON objects whose optional "response"
// field holds the next fragment. There is no terminator: the stream simply
// ends. Invalid lines are skipped.
func scanNDJSON(ctx context.Context, r io.Reader, emit DeltaFunc) (string, error) {
	var full strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return full.String(), err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var chunk ndjsonChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Response == "" {
			continue
		}
		full.WriteString(chunk.Response)
		if emit != nil {
			if err := emit(chunk.Response); err != nil {
				return full.String(), err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return full.String(), &TransportError{Op: "read stream", Err: err}
	}
	return full.String(), nil
}
