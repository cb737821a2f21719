package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

const (
	ModeCreate = "create"
	ModeUpdate = "update"
)

// FetchResult is one record read from either side.
type FetchResult struct {
	Side      entitymap.Side
	Entity    string
	ID        string
	URL       string
	EntityMap entitymap.EntityMap
	Raw       any
	Norm      *entitymap.Record
	Cached    bool
}

// Outcome is a successful create or update on the target.
type Outcome struct {
	Mode       string
	URL        string
	StatusCode int
	Payload    map[string]any
	// Response is the decoded target response, nil when it was not JSON.
	Response any
}

type SyncResult struct {
	Mode     string
	Entity   string
	SourceID string
	TargetID string
	Source   FetchResult
	Target   Outcome
}

// FetchSource reads {source.base_url}/{entity}/{id} and normalizes it with
// the map whose source entity name is entity.
func (c *Client) FetchSource(ctx context.Context, env *config.Environment, entity, id string) (FetchResult, error) {
	em, ok := env.Entities.Find(entity, entitymap.SideSource)
	if !ok {
		return FetchResult{}, &EntityError{Side: entitymap.SideSource, Entity: entity}
	}
	u := joinURL(env.Source.BaseURL, entity, id)
	headers, err := c.authHeaders(u, false)
	if err != nil {
		return FetchResult{}, err
	}
	return c.fetch(ctx, OpFetchSource, u, headers, entitymap.SideSource, entity, id, em)
}

// FetchTarget reads {target.base_url}/{base_id}/{table}/{id} and normalizes
// it with the map whose target entity name is entity. The target host must
// have credentials.
func (c *Client) FetchTarget(ctx context.Context, env *config.Environment, entity, id string) (FetchResult, error) {
	em, ok := env.Entities.Find(entity, entitymap.SideTarget)
	if !ok {
		return FetchResult{}, &EntityError{Side: entitymap.SideTarget, Entity: entity}
	}
	u := joinURL(env.Target.BaseURL, env.Target.BaseID, em.TargetEntityName, id)
	headers, err := c.authHeaders(u, true)
	if err != nil {
		return FetchResult{}, err
	}
	return c.fetch(ctx, OpFetchTarget, u, headers, entitymap.SideTarget, entity, id, em)
}

func (c *Client) fetch(ctx context.Context, op, u string, headers http.Header, side entitymap.Side, entity, id string, em entitymap.EntityMap) (FetchResult, error) {
	resp, err := c.Do(ctx, http.MethodGet, u, headers, nil)
	if err != nil {
		return FetchResult{}, &UpstreamError{Op: op, URL: u, Err: err}
	}
	if !resp.OK() {
		return FetchResult{}, &UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			URL:        u,
			Body:       decodeLoose(resp.Body),
			RawBody:    resp.Body,
		}
	}
	raw, err := decodeJSON(resp.Body)
	if err != nil {
		return FetchResult{}, &DecodeError{URL: u, RawBody: resp.Body, Err: err}
	}
	return FetchResult{
		Side:      side,
		Entity:    entity,
		ID:        id,
		URL:       u,
		EntityMap: em,
		Raw:       raw,
		Norm:      entitymap.Normalize(raw, em, side),
		Cached:    resp.Cached,
	}, nil
}

// CreateTarget POSTs {fields_key: payload} to the entity's target table.
// 200 and 201 count as success.
func (c *Client) CreateTarget(ctx context.Context, env *config.Environment, em entitymap.EntityMap, norm *entitymap.Record) (Outcome, error) {
	u := joinURL(env.Target.BaseURL, env.Target.BaseID, em.TargetEntityName)
	return c.write(ctx, env, em, norm, writeSpec{
		op:     OpCreateTarget,
		mode:   ModeCreate,
		method: http.MethodPost,
		url:    u,
		ok:     func(code int) bool { return code == http.StatusOK || code == http.StatusCreated },
	})
}

// UpdateTarget PATCHes {fields_key: payload} onto one target record. Only 200
// counts as success.
func (c *Client) UpdateTarget(ctx context.Context, env *config.Environment, em entitymap.EntityMap, targetID string, norm *entitymap.Record) (Outcome, error) {
	u := joinURL(env.Target.BaseURL, env.Target.BaseID, em.TargetEntityName, targetID)
	return c.write(ctx, env, em, norm, writeSpec{
		op:       OpUpdateTarget,
		mode:     ModeUpdate,
		method:   http.MethodPatch,
		url:      u,
		targetID: targetID,
		ok:       func(code int) bool { return code == http.StatusOK },
	})
}

type writeSpec struct {
	op       string
	mode     string
	method   string
	url      string
	targetID string
	ok       func(code int) bool
}

func (c *Client) write(ctx context.Context, env *config.Environment, em entitymap.EntityMap, norm *entitymap.Record, ws writeSpec) (Outcome, error) {
	headers, err := c.authHeaders(ws.url, true)
	if err != nil {
		return Outcome{}, err
	}
	headers.Set("Content-Type", "application/json")

	payload := entitymap.BuildPayload(norm, em, env.PayloadOptions())
	body, err := json.Marshal(map[string]any{env.Target.FieldsKey: payload})
	if err != nil {
		return Outcome{}, err
	}

	resp, err := c.Do(ctx, ws.method, ws.url, headers, body)
	if err != nil {
		return Outcome{}, &UpstreamError{Op: ws.op, URL: ws.url, TargetID: ws.targetID, Payload: payload, Err: err}
	}
	decoded := decodeLoose(resp.Body)
	if !ws.ok(resp.StatusCode) {
		return Outcome{}, &UpstreamError{
			Op:         ws.op,
			StatusCode: resp.StatusCode,
			URL:        ws.url,
			TargetID:   ws.targetID,
			Payload:    payload,
			Body:       decoded,
			RawBody:    resp.Body,
		}
	}
	return Outcome{
		Mode:       ws.mode,
		URL:        ws.url,
		StatusCode: resp.StatusCode,
		Payload:    payload,
		Response:   decoded,
	}, nil
}

// Sync fetches a source record and writes it to the target: an update when
// targetID is set, otherwise a create.
func (c *Client) Sync(ctx context.Context, env *config.Environment, entity, sourceID, targetID string) (SyncResult, error) {
	src, err := c.FetchSource(ctx, env, entity, sourceID)
	if err != nil {
		return SyncResult{}, err
	}
	targetID = strings.TrimSpace(targetID)
	res := SyncResult{Entity: entity, SourceID: sourceID, TargetID: targetID, Source: src}
	if targetID != "" {
		res.Mode = ModeUpdate
		res.Target, err = c.UpdateTarget(ctx, env, src.EntityMap, targetID, src.Norm)
	} else {
		res.Mode = ModeCreate
		res.Target, err = c.CreateTarget(ctx, env, src.EntityMap, src.Norm)
	}
	if err != nil {
		return SyncResult{}, err
	}
	return res, nil
}
