package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
	"github.com/hfi/llm-secret-interceptor/internal/metrics"
	"github.com/hfi/llm-secret-interceptor/internal/protocol"
	"github.com/hfi/llm-secret-interceptor/internal/quota"
	"github.com/hfi/llm-secret-interceptor/internal/streambuf"
)

// forwardStreaming handles the STREAMING branch of the state machine:
// it opens an SSE connection to the upstream, restores placeholders
// chunk-by-chunk using the sliding-suffix-carry buffer, and relays
// each restored chunk to the client as it becomes safe to emit.
func (p *Pipeline) forwardStreaming(ctx context.Context, w http.ResponseWriter, r *http.Request, req *request) {
	body, err := req.handler.SerializeRequest(req.std)
	if err != nil {
		p.quota.Unwind(req.tenantID, quota.TypeRequests, 1)
		p.writeError(w, newError(KindInternal, "failed to serialize upstream request", err), req.id)
		return
	}

	upstreamCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Upstream())
	defer cancel()

	upstreamReq, err := p.newUpstreamRequest(upstreamCtx, r, body)
	if err != nil {
		p.quota.Unwind(req.tenantID, quota.TypeRequests, 1)
		p.writeError(w, newError(KindInternal, "failed to build upstream request", err), req.id)
		return
	}

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		p.quota.Unwind(req.tenantID, quota.TypeRequests, 1)
		kind := KindUpstreamError
		if errors.Is(upstreamCtx.Err(), context.DeadlineExceeded) {
			kind = KindUpstreamTimeout
		}
		p.writeError(w, newError(kind, "upstream request failed", err), req.id)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		p.quota.Unwind(req.tenantID, quota.TypeRequests, 1)
		body, _ := io.ReadAll(resp.Body)
		p.writeError(w, &Error{Kind: KindUpstreamError, Message: "upstream returned an error: " + string(body), Status: resp.StatusCode}, req.id)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	m := req.mapping
	if m == nil {
		m = mapping.New(req.tenantID, p.cfg.Mapping.TTL())
	}
	reader := newStreamReader(resp.Body, req.handler, m, p.cfg.Placeholder.MaxLength)
	reader.relay(w)
	if flusher != nil {
		flusher.Flush()
	}

	metrics.RequestsTotal.Inc()
	p.audit.LogResponseProcessed(req.id, req.model, 0)
}

// streamReader adapts an upstream SSE body into restored, re-serialized
// SSE events written to the client. It splits parsing and restoration
// the same way StreamProcessor/StreamReader do, but restores through
// streambuf's grammar-aware buffer instead of a fixed trailing window.
type streamReader struct {
	parser  *protocol.SSEParser
	handler protocol.StreamingHandler
	buffer  *streambuf.Buffer
}

func newStreamReader(r io.Reader, handler protocol.StreamingHandler, m *mapping.Mapping, maxLen int) *streamReader {
	return &streamReader{
		parser:  protocol.NewSSEParser(r),
		handler: handler,
		buffer:  streambuf.New(m, maxLen),
	}
}

// relay reads every SSE event from the upstream body, restores
// placeholders in its delta content, and writes the re-serialized
// event to w. Per-stream restore/unresolved counts aren't tracked
// here — streambuf.Buffer restores silently by design, see its doc
// comment on why fuzzy recovery (which would need per-chunk counting)
// is deliberately left to the non-streaming path.
func (sr *streamReader) relay(w io.Writer) {
	writer := protocol.NewSSEWriter(w)
	flusher, canFlush := w.(http.Flusher)

	flushTail := func() {
		tail := sr.buffer.Flush()
		if tail == "" {
			return
		}
		if serialized, err := sr.handler.SerializeStreamChunk(&protocol.StreamChunk{Delta: tail}); err == nil {
			_ = writer.WriteEvent("", serialized)
		}
	}

	for {
		_, data, err := sr.parser.ReadEvent()
		if err != nil {
			flushTail()
			break
		}

		trimmed := bytes.TrimSpace(data)
		if bytes.Equal(trimmed, []byte("[DONE]")) {
			flushTail()
			_ = writer.WriteDone()
			break
		}

		chunk, err := sr.handler.ParseStreamChunk(data)
		if err != nil {
			_ = writer.WriteEvent("", data)
			continue
		}

		metrics.StreamingChunksProcessed.Inc()

		if chunk.Delta == "" {
			_ = writer.WriteEvent("", data)
			if canFlush {
				flusher.Flush()
			}
			continue
		}

		safe := sr.buffer.Push(chunk.Delta)
		if safe == "" {
			continue
		}
		chunk.Delta = safe
		serialized, err := sr.handler.SerializeStreamChunk(chunk)
		if err != nil {
			continue
		}
		_ = writer.WriteEvent("", serialized)
		if canFlush {
			flusher.Flush()
		}
	}
}
