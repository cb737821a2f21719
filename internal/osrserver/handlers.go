package osrserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-sync-router/internal/syncer"
	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

const (
	endpointConfigsFetch = "configs-fetch"
	endpointSourceFetch  = "source-fetch"
	endpointTargetFetch  = "target-fetch"
	endpointSync         = "source-fetch-and-sync-with-create-or-update"
)

type handlers struct {
	defaultEnv string
	state      *state
	client     *syncer.Client
}

func (h *handlers) dispatch(c *gin.Context) {
	endpoint := strings.TrimSpace(c.Param("endpoint"))
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Query("endpoint"))
	}
	c.Set(ctxEndpoint, endpoint)

	switch endpoint {
	case endpointConfigsFetch:
		h.configsFetch(c)
	case endpointSourceFetch:
		h.fetch(c, entitymap.SideSource)
	case endpointTargetFetch:
		h.fetch(c, entitymap.SideTarget)
	case endpointSync:
		h.sync(c)
	default:
		c.Set(ctxError, "unknown endpoint")
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown endpoint"})
	}
}

// request resolves the environment and a client bound to the current
// credentials. It writes the error response itself when it returns false.
func (h *handlers) request(c *gin.Context) (*config.Environment, *syncer.Client, bool) {
	snap := h.state.Snapshot()
	if snap == nil || snap.envs == nil {
		c.Set(ctxError, "environments not loaded")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing environments file"})
		return nil, nil, false
	}
	name := strings.TrimSpace(c.Query("env"))
	if name == "" {
		name = h.defaultEnv
	}
	env, err := snap.envs.Get(name)
	if err != nil {
		c.Set(ctxError, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown environment", "env": name})
		return nil, nil, false
	}
	c.Set(ctxEnv, env.Name)

	client := *h.client
	client.Credentials = snap.creds
	return env, &client, true
}

func (h *handlers) configsFetch(c *gin.Context) {
	env, _, ok := h.request(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": env.Entities})
}

func (h *handlers) fetch(c *gin.Context, side entitymap.Side) {
	entity := c.Query("entity")
	id := c.Query("id")
	c.Set(ctxEntity, entity)
	c.Set(ctxID, id)
	if entity == "" || id == "" {
		c.Set(ctxError, "missing parameters")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing entity or id"})
		return
	}
	env, client, ok := h.request(c)
	if !ok {
		return
	}

	var (
		res syncer.FetchResult
		err error
	)
	if side == entitymap.SideSource {
		res, err = client.FetchSource(c.Request.Context(), env, entity, id)
	} else {
		res, err = client.FetchTarget(c.Request.Context(), env, entity, id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(ctxUpstreamURL, res.URL)
	c.Set(ctxCached, res.Cached)
	c.JSON(http.StatusOK, gin.H{
		"system":    string(side),
		"entity":    entity,
		"id":        id,
		"norm_data": res.Norm,
		"raw_data":  res.Raw,
	})
}

func (h *handlers) sync(c *gin.Context) {
	entity := c.Query("entity")
	sourceID := c.Query("id")
	targetID := c.Query("target_id")
	c.Set(ctxEntity, entity)
	c.Set(ctxID, sourceID)
	c.Set(ctxTargetID, targetID)
	if entity == "" || sourceID == "" {
		c.Set(ctxError, "missing parameters")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing entity or source id"})
		return
	}
	env, client, ok := h.request(c)
	if !ok {
		return
	}

	res, err := client.Sync(c.Request.Context(), env, entity, sourceID, targetID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(ctxMode, res.Mode)
	c.Set(ctxUpstreamStatus, res.Target.StatusCode)
	c.Set(ctxUpstreamURL, res.Target.URL)
	c.JSON(http.StatusOK, gin.H{
		"mode":      res.Mode,
		"entity":    entity,
		"source_id": sourceID,
		"target":    res.Target.Response,
	})
}

// writeError maps sync errors to responses: unknown entities 404,
// configuration and decode problems 500, upstream failures 502.
func writeError(c *gin.Context, err error) {
	c.Set(ctxError, err.Error())

	var (
		entityErr   *syncer.EntityError
		configErr   *syncer.ConfigError
		upstreamErr *syncer.UpstreamError
		decodeErr   *syncer.DecodeError
	)
	switch {
	case errors.As(err, &entityErr):
		msg := "Entity not allowed"
		if entityErr.Side == entitymap.SideSource {
			msg = "Source entity not allowed"
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msg, "entity": entityErr.Entity})
	case errors.As(err, &configErr):
		msg := configErr.Err.Error()
		if errors.Is(configErr.Err, syncer.ErrNoAuthConfig) {
			msg = "No auth config for host"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "url": configErr.URL})
	case errors.As(err, &upstreamErr):
		if upstreamErr.StatusCode != 0 {
			c.Set(ctxUpstreamStatus, upstreamErr.StatusCode)
		}
		c.Set(ctxUpstreamURL, upstreamErr.URL)
		c.JSON(http.StatusBadGateway, upstreamErrorBody(upstreamErr))
	case errors.As(err, &decodeErr):
		c.Set(ctxUpstreamURL, decodeErr.URL)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "JSON decode failed",
			"json_error": decodeErr.Err.Error(),
			"url":        decodeErr.URL,
			"raw_body":   string(decodeErr.RawBody),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func upstreamErrorBody(e *syncer.UpstreamError) gin.H {
	var httpCode any
	if e.StatusCode != 0 {
		httpCode = e.StatusCode
	}
	body := gin.H{
		"error":     "Failed to " + e.Op,
		"http_code": httpCode,
		"url":       e.URL,
	}
	if e.Err != nil {
		body["transport_error"] = e.Err.Error()
	}
	switch e.Op {
	case syncer.OpFetchTarget:
		body["attempted_url"] = e.URL
	case syncer.OpFetchSource:
		body["upstream_response"] = e.Body
	default:
		body["payload"] = e.Payload
		body["upstream_response"] = e.Body
		if e.TargetID != "" {
			body["target_id"] = e.TargetID
		}
	}
	return body
}
