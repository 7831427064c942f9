package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signalwatch/internal/pipeline"
	"signalwatch/internal/services"
	"signalwatch/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Healthy: true}
	if err := s.store.Health(r.Context()); err == nil {
		resp.Store = true
	} else {
		resp.Healthy = false
	}
	for _, h := range s.runner.Health(r.Context()) {
		resp.Stages = append(resp.Stages, StageHealthView{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
		if !h.Ready {
			resp.Healthy = false
		}
	}
	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]ChannelView, 0, len(channels))
	for _, c := range channels {
		views = append(views, ChannelView{ID: c.ID, Name: c.Name, URL: c.URL, Domain: c.Domain, Priority: c.Priority})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"channels": views})
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := store.ListOptions{
		ChannelID: strings.TrimSpace(query.Get("channel")),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := store.ParseStatus(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Status = status
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}

	videos, err := s.store.ListVideos(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]VideoView, 0, len(videos))
	for _, v := range videos {
		views = append(views, videoView(v))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"videos": views})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	video, err := s.store.GetVideo(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if video == nil {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	detail := VideoDetail{VideoView: videoView(video)}
	if summary, err := s.store.GetSummary(r.Context(), id); err == nil && summary != nil {
		detail.Summary = &SummaryView{
			Summary:     summary.Summary,
			KeyPoints:   summary.KeyPoints,
			Category:    summary.Category,
			Model:       summary.Model,
			GeneratedAt: summary.GeneratedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	transcript, err := s.store.GetTranscript(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if transcript == nil {
		s.writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	s.writeJSON(w, http.StatusOK, TranscriptView{
		VideoID:   transcript.VideoID,
		Language:  transcript.Language,
		Content:   transcript.Content,
		FetchedAt: transcript.FetchedAt,
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	video, err := s.runner.RetryVideo(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case services.IsPermanent(err):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, videoView(video))
}

func (s *Server) handleLatestDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.digests.Latest()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if d == nil {
		s.writeError(w, http.StatusNotFound, "no digests written yet")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.digests.Load(r.PathValue("date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if d == nil {
		s.writeError(w, http.StatusNotFound, "digest not found")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]RunView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView(run))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": views})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byStatus := make(map[string]int, len(stats))
	total := 0
	for status, count := range stats {
		byStatus[string(status)] = count
		total += count
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"total": total, "by_status": byStatus})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	// A full run can outlive the server's write timeout, so lift the
	// connection deadlines for this route. The run itself is detached from
	// the client connection: a client that gives up waiting must not force
	// an in-flight run to a partial finish.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	run, err := s.runner.Run(context.WithoutCancel(r.Context()), store.TriggerManual)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, runView(run))
}
