// Package pipeline implements the proxy pipeline (C8): the single
// request/response state machine that wires every other component —
// secret scanning, anonymization, caching, quota enforcement, upstream
// forwarding, and restoration — into one HTTP handler.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hfi/llm-secret-interceptor/internal/anonymize"
	"github.com/hfi/llm-secret-interceptor/internal/audit"
	"github.com/hfi/llm-secret-interceptor/internal/cache"
	"github.com/hfi/llm-secret-interceptor/internal/config"
	"github.com/hfi/llm-secret-interceptor/internal/deanonymize"
	"github.com/hfi/llm-secret-interceptor/internal/mapping"
	"github.com/hfi/llm-secret-interceptor/internal/metrics"
	"github.com/hfi/llm-secret-interceptor/internal/protocol"
	"github.com/hfi/llm-secret-interceptor/internal/quota"
	"github.com/hfi/llm-secret-interceptor/internal/secretscan"
	"github.com/hfi/llm-secret-interceptor/internal/store"
)

// auditLogger is the subset of audit.Logger's methods the pipeline
// calls. Both *audit.Logger and *audit.NopLogger satisfy it.
type auditLogger interface {
	Log(event *audit.Event)
	LogPIIDetected(requestID, detector, entityType string)
	LogPlaceholderAssigned(requestID string, count int)
	LogPlaceholderRestored(requestID string, count int)
	LogRequestProcessed(requestID, method, host, path string, durationMs float64)
	LogResponseProcessed(requestID, host string, durationMs float64)
	LogMappingCreated(requestID, tenantID string)
	LogMappingExpired(requestID, tenantID string)
	LogSecretScanBlocked(requestID, tenantID string, count int)
	LogError(eventType audit.EventType, requestID, host, errorMsg string)
}

// TenantResolver extracts a tenant identifier from an inbound request.
// The default resolver reads the X-Tenant-ID header, falling back to
// "default" for deployments that don't separate tenants.
type TenantResolver func(*http.Request) string

func defaultTenantResolver(r *http.Request) string {
	if id := r.Header.Get("X-Tenant-ID"); id != "" {
		return id
	}
	return "default"
}

// Deps bundles every component Pipeline dispatches to. Grouping
// construction this way keeps cmd/proxy's wiring in one place instead
// of a constructor with a dozen positional arguments.
type Deps struct {
	Config       *config.Config
	Client       *http.Client
	Protocols    *protocol.Registry
	Anonymizer   *anonymize.Anonymizer
	Deanonymizer *deanonymize.Deanonymizer
	Store        store.Store
	Cache        *cache.LRU
	Quota        *quota.Store
	RateLimiter  *quota.RateLimiter
	Scanner      *secretscan.Scanner
	Audit        auditLogger
	Log          zerolog.Logger
	Tenant       TenantResolver
}

// Pipeline is the PII-anonymizing reverse proxy's request handler.
type Pipeline struct {
	cfg          *config.Config
	client       *http.Client
	protocols    *protocol.Registry
	anonymizer   *anonymize.Anonymizer
	deanonymizer *deanonymize.Deanonymizer
	store        store.Store
	cache        *cache.LRU
	quota        *quota.Store
	rateLimiter  *quota.RateLimiter
	scanner      *secretscan.Scanner
	audit        auditLogger
	log          zerolog.Logger
	tenant       TenantResolver
}

// New builds a Pipeline from deps, filling in defaults for any
// optional field left unset.
func New(deps Deps) *Pipeline {
	if deps.Audit == nil {
		deps.Audit = audit.NewNopLogger()
	}
	if deps.Tenant == nil {
		deps.Tenant = defaultTenantResolver
	}
	if deps.Client == nil {
		deps.Client = http.DefaultClient
	}
	return &Pipeline{
		cfg:          deps.Config,
		client:       deps.Client,
		protocols:    deps.Protocols,
		anonymizer:   deps.Anonymizer,
		deanonymizer: deps.Deanonymizer,
		store:        deps.Store,
		cache:        deps.Cache,
		quota:        deps.Quota,
		rateLimiter:  deps.RateLimiter,
		scanner:      deps.Scanner,
		audit:        deps.Audit,
		log:          deps.Log,
		tenant:       deps.Tenant,
	}
}

// request carries the state threaded through one pipeline run.
type request struct {
	id        string
	tenantID  string
	started   time.Time
	handler   protocol.StreamingHandler
	std       *protocol.StandardMessage
	streaming bool
	model     string
	mapping   *mapping.Mapping
	cacheKey  string
}

// ServeHTTP implements the RECEIVED -> ... -> DONE state machine for
// a single completion request.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), p.cfg.Timeouts.Request())
	defer cancel()

	req := &request{
		id:       uuid.NewString(),
		tenantID: p.tenant(r),
		started:  time.Now(),
	}

	if err := p.receive(r, req); err != nil {
		p.writeError(w, err, req.id)
		return
	}

	if err := p.secretScan(req); err != nil {
		p.writeError(w, err, req.id)
		return
	}

	p.anonymizeRequest(ctx, req)
	defer func() {
		if req.mapping != nil {
			_ = p.store.Delete(context.Background(), req.mapping.ID())
		}
	}()

	if hit, ok := p.cacheLookup(req); ok {
		p.restoreAndRespond(w, req, []byte(hit.ResponseBody), http.StatusOK)
		return
	}

	if err := p.quotaCheck(req); err != nil {
		p.writeError(w, err, req.id)
		return
	}

	if req.streaming {
		p.forwardStreaming(ctx, w, r, req)
		return
	}

	status, body, err := p.forwardUnary(ctx, r, req)
	if err != nil {
		p.quota.Unwind(req.tenantID, quota.TypeRequests, 1)
		p.writeError(w, err, req.id)
		return
	}

	p.cacheStore(req, body)
	p.restoreAndRespond(w, req, body, status)
}

// receive parses the inbound body into a StandardMessage via whichever
// protocol handler matches the request.
func (p *Pipeline) receive(r *http.Request, req *request) *Error {
	handler := p.protocols.Detect(r)
	if handler == nil {
		return newError(KindBadRequest, "unsupported request protocol", nil)
	}
	streamingHandler, ok := handler.(protocol.StreamingHandler)
	if !ok {
		return newError(KindInternal, "handler does not support streaming contract", nil)
	}
	req.handler = streamingHandler

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		return newError(KindBadRequest, "failed to read request body", err)
	}

	std, err := handler.ParseRequest(body)
	if err != nil {
		return newError(KindBadRequest, "failed to parse request body", err)
	}
	req.std = std
	if model, ok := std.Metadata["model"].(string); ok {
		req.model = model
	}
	if stream, ok := std.Metadata["stream"].(bool); ok {
		req.streaming = stream
	}
	return nil
}

// secretScan runs the credential scanner over every message and acts
// on the worst finding: block refuses the request outright, redact
// strips the matched spans in place, warn only logs.
func (p *Pipeline) secretScan(req *request) *Error {
	if !p.cfg.Compliance.SecretScanEnabled {
		return nil
	}

	blocked := 0
	for i, msg := range req.std.Messages {
		result := p.scanner.Scan(msg.Content)
		switch result.Action {
		case secretscan.ActionBlock:
			blocked += len(result.Findings)
		case secretscan.ActionRedact:
			req.std.Messages[i].Content = redactFindings(msg.Content, result.Findings)
		case secretscan.ActionWarn:
			p.log.Warn().Str("request_id", req.id).Int("findings", len(result.Findings)).Msg("secret scan warning")
		}
	}

	if blocked > 0 {
		metrics.SecretScanBlockedTotal.Inc()
		p.audit.LogSecretScanBlocked(req.id, req.tenantID, blocked)
		return newError(KindSecretBlocked, "request contains a credential-shaped secret", nil)
	}
	return nil
}

// redactFindings replaces every matched span with the scanner's fixed
// redaction marker, processing matches back-to-front so earlier
// offsets stay valid.
func redactFindings(text string, findings []secretscan.Finding) string {
	for i := len(findings) - 1; i >= 0; i-- {
		f := findings[i]
		text = text[:f.Start] + "[REDACTED:" + f.Type + "]" + text[f.End:]
	}
	return text
}

// anonymizeRequest rewrites PII out of every message and persists the
// resulting mapping. Detection failures are not possible here —
// Anonymize never errors — so this stage has no error return.
func (p *Pipeline) anonymizeRequest(ctx context.Context, req *request) {
	m := mapping.New(req.tenantID, p.cfg.Mapping.TTL())

	for i, msg := range req.std.Messages {
		result := p.anonymizer.Anonymize(msg.Content, "", m)
		req.std.Messages[i].Content = result.Text
	}

	if m.Len() == 0 {
		return
	}

	if p.cfg.Proxy.InjectPrompt {
		notice := anonymize.InjectionNotice("")
		req.std.Messages = append([]protocol.Message{{Role: "system", Content: notice}}, req.std.Messages...)
	}

	if err := p.store.Put(ctx, m.ID(), m, p.cfg.Mapping.TTL()); err != nil {
		p.log.Error().Err(err).Str("request_id", req.id).Msg("failed to persist mapping")
		return
	}
	req.mapping = m

	metrics.PlaceholdersAssignedTotal.Add(float64(m.Len()))
	p.audit.LogMappingCreated(req.id, req.tenantID)
	p.audit.LogPlaceholderAssigned(req.id, m.Len())
	for _, e := range m.Entries() {
		metrics.RecordPIIDetected("registry", e.EntityType)
		p.audit.LogPIIDetected(req.id, "registry", e.EntityType)
	}
}

// cacheLookup checks the response cache for an already-anonymized,
// identical request. Streaming requests never consult the cache: a
// cached body has no chunk boundaries to replay.
func (p *Pipeline) cacheLookup(req *request) (cache.Entry, bool) {
	if !p.cfg.Cache.Enabled || req.streaming {
		return cache.Entry{}, false
	}
	req.cacheKey = cache.Key(anonymizedBody(req.std), req.model, req.tenantID)

	entry, ok := p.cache.Get(req.cacheKey)
	if ok {
		metrics.CacheHitsTotal.Inc()
		return entry, true
	}
	metrics.CacheMissesTotal.Inc()
	return cache.Entry{}, false
}

func anonymizedBody(std *protocol.StandardMessage) string {
	var b strings.Builder
	for _, m := range std.Messages {
		b.WriteString(m.Role)
		b.WriteByte(0)
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

// quotaCheck enforces the tenant's rate limiter and rolling-window
// quota before any upstream cost is incurred.
func (p *Pipeline) quotaCheck(req *request) *Error {
	if p.cfg.Quota.RateLimitEnabled && !p.rateLimiter.Allow(req.tenantID) {
		return newError(KindRateLimited, "rate limit exceeded", nil)
	}

	ok, limit := p.quota.Check(req.tenantID, quota.TypeRequests, 1)
	if !ok {
		metrics.RecordQuotaExceeded(req.tenantID)
		p.audit.Log(&audit.Event{Type: audit.EventQuotaExceeded, RequestID: req.id, TenantID: req.tenantID})
		msg := "quota exceeded"
		if limit != nil {
			msg = "quota exceeded for " + string(limit.Type) + "/" + string(limit.Period)
		}
		return newError(KindQuotaExceeded, msg, nil)
	}
	p.quota.Record(req.tenantID, quota.TypeRequests, 1)
	return nil
}

// forwardUnary serializes the anonymized request, sends it upstream,
// and returns the raw (still-anonymized) response body.
func (p *Pipeline) forwardUnary(ctx context.Context, r *http.Request, req *request) (int, []byte, *Error) {
	body, err := req.handler.SerializeRequest(req.std)
	if err != nil {
		return 0, nil, newError(KindInternal, "failed to serialize upstream request", err)
	}

	upstreamCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Upstream())
	defer cancel()

	upstreamReq, err := p.newUpstreamRequest(upstreamCtx, r, body)
	if err != nil {
		return 0, nil, newError(KindInternal, "failed to build upstream request", err)
	}

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		if errors.Is(upstreamCtx.Err(), context.DeadlineExceeded) {
			return 0, nil, newError(KindUpstreamTimeout, "upstream request timed out", err)
		}
		return 0, nil, newError(KindUpstreamError, "upstream request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, newError(KindUpstreamError, "failed to read upstream response", err)
	}
	if resp.StatusCode >= 400 {
		return 0, nil, &Error{Kind: KindUpstreamError, Message: "upstream returned an error", Status: resp.StatusCode}
	}
	return resp.StatusCode, respBody, nil
}

func (p *Pipeline) newUpstreamRequest(ctx context.Context, r *http.Request, body []byte) (*http.Request, error) {
	upstreamReq, err := http.NewRequestWithContext(ctx, r.Method, p.cfg.Proxy.UpstreamURL+r.URL.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	upstreamReq.Header.Set("Content-Type", "application/json")
	if auth := r.Header.Get("Authorization"); auth != "" {
		upstreamReq.Header.Set("Authorization", auth)
	}
	return upstreamReq, nil
}

// cacheStore persists the sanitized (still-anonymized) response body
// under the key cacheLookup already computed, so a later identical
// request can skip the upstream round trip entirely.
func (p *Pipeline) cacheStore(req *request, sanitizedBody []byte) {
	if !p.cfg.Cache.Enabled || req.streaming || req.cacheKey == "" {
		return
	}
	p.cache.PutIfAbsent(cache.Entry{
		Key:          req.cacheKey,
		ResponseBody: string(sanitizedBody),
		TTL:          p.cfg.Cache.TTL(),
	})
}

// restoreAndRespond deanonymizes sanitizedBody back to its original
// PII values and writes the final response.
func (p *Pipeline) restoreAndRespond(w http.ResponseWriter, req *request, sanitizedBody []byte, status int) {
	final := sanitizedBody

	if req.mapping != nil {
		std, err := req.handler.ParseResponse(sanitizedBody)
		if err == nil {
			restored := 0
			unresolved := 0
			for i, msg := range std.Messages {
				result := p.deanonymizer.Deanonymize(msg.Content, req.mapping)
				std.Messages[i].Content = result.Text
				restored += result.ReplacedCount
				unresolved += len(result.Unresolved)
			}
			if body, err := req.handler.SerializeResponse(std); err == nil {
				final = body
			}
			if restored > 0 {
				metrics.PlaceholdersRestoredTotal.Add(float64(restored))
				p.audit.LogPlaceholderRestored(req.id, restored)
			}
			if unresolved > 0 {
				metrics.PlaceholdersUnresolvedTotal.Add(float64(unresolved))
				p.audit.LogMappingExpired(req.id, req.tenantID)
			}
		}
	}

	metrics.RequestDuration.WithLabelValues("response").Observe(time.Since(req.started).Seconds())
	metrics.RequestsTotal.Inc()
	p.audit.LogResponseProcessed(req.id, req.model, float64(time.Since(req.started).Milliseconds()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(final)
}

// writeError renders err as the {error:{message,type,code}} envelope
// every failed request returns, regardless of which stage raised it.
func (p *Pipeline) writeError(w http.ResponseWriter, err *Error, requestID string) {
	p.log.Warn().Str("request_id", requestID).Str("kind", string(err.Kind)).Msg(err.Message)
	p.audit.LogError(audit.EventUpstreamError, requestID, "", err.Error())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{
		Message: err.Message,
		Type:    string(err.Kind),
		Code:    string(err.Kind),
	}})
}
