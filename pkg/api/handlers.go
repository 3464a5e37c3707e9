package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/riskmap/pkg/codec"
	"github.com/ssargent/riskmap/pkg/raster"
)

// Server holds the API server state
type Server struct {
	archive Archive
	decoder *codec.Decoder
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(archive Archive, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = codec.DefaultMaxFetchBytes
	}
	return &Server{
		archive: archive,
		decoder: codec.NewDecoder(codec.WithDecoderImageCodec(&raster.PNG{MaxPixels: config.MaxImagePixels})),
		config:  config,
		metrics: metrics,
	}
}

// readBody reads the request body up to the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
}

// codenameParam returns the unescaped codename path parameter.
func codenameParam(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "codename"))
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Report that the server is up
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDecode godoc
//
//	@Summary		Decode and verify an rkm stream
//	@Description	Decode an uploaded stream and return a summary of the map
//	@Tags			codec
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"rkm stream"
//	@Success		200		{object}	MapSummary
//	@Failure		413		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/decode [post]
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	m, err := s.decoder.DecodeBytes(body)
	s.metrics.RecordCodecOperation("decode", len(body), err)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, summarize(m))
}

// handleInspect godoc
//
//	@Summary		Report the record layout of an rkm stream
//	@Tags			codec
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"rkm stream"
//	@Success		200		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/inspect [post]
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		sendFailure(w, err)
		return
	}

	layout, err := codec.InspectBytes(body)
	s.metrics.RecordCodecOperation("inspect", len(body), err)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, layout)
}

// handlePutMap godoc
//
//	@Summary		Store an rkm stream as a new revision
//	@Description	Verify the stream and store it, or return the latest revision when it is unchanged
//	@Tags			maps
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"rkm stream"
//	@Success		200		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/maps [put]
func (s *Server) handlePutMap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := s.readBody(w, r)
	if err != nil {
		s.metrics.RecordArchiveOperation("put", false, time.Since(start))
		sendFailure(w, err)
		return
	}

	rev, err := s.archive.Put(r.Context(), body)
	s.metrics.RecordArchiveOperation("put", err == nil, time.Since(start))
	s.metrics.RecordCodecOperation("decode", len(body), err)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, rev)
}

// handleListMaps godoc
//
//	@Summary		List the latest revision of every map
//	@Tags			maps
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/maps [get]
func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	revs, err := s.archive.List(r.Context())
	s.metrics.RecordArchiveOperation("list", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, revs)
}

// handleGetMap godoc
//
//	@Summary		Download the latest revision of a map
//	@Tags			maps
//	@Produce		octet-stream
//	@Param			codename	path		string	true	"Map codename"
//	@Success		200			{file}		binary
//	@Failure		404			{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/maps/{codename} [get]
func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	codename, err := codenameParam(r)
	if err != nil {
		sendError(w, "Invalid codename", http.StatusBadRequest)
		return
	}

	rev, err := s.archive.Latest(r.Context(), codename)
	if err != nil {
		s.metrics.RecordArchiveOperation("latest", false, time.Since(start))
		sendFailure(w, err)
		return
	}
	s.writeBlob(w, r, rev.ID, start)
}

// handleHistory godoc
//
//	@Summary		List every revision of a map, oldest first
//	@Tags			maps
//	@Produce		json
//	@Param			codename	path		string	true	"Map codename"
//	@Success		200			{object}	APIResponse
//	@Failure		404			{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/maps/{codename}/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	codename, err := codenameParam(r)
	if err != nil {
		sendError(w, "Invalid codename", http.StatusBadRequest)
		return
	}

	revs, err := s.archive.History(r.Context(), codename)
	s.metrics.RecordArchiveOperation("history", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, revs)
}

// handleGetRevision godoc
//
//	@Summary		Download a specific revision
//	@Tags			revisions
//	@Produce		octet-stream
//	@Param			id	path		string	true	"Revision id"
//	@Success		200	{file}		binary
//	@Failure		404	{object}	APIResponse
//	@Failure		500	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/revisions/{id} [get]
func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	s.writeBlob(w, r, chi.URLParam(r, "id"), time.Now())
}

func (s *Server) writeBlob(w http.ResponseWriter, r *http.Request, id string, start time.Time) {
	blob, err := s.archive.Blob(r.Context(), id)
	s.metrics.RecordArchiveOperation("get", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprint(len(blob)))
	w.Header().Set("X-Revision-ID", id)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}
