package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"media-relay/internal/logging"
	"media-relay/internal/pipeline"
	"media-relay/internal/trigger"
)

// AcknowledgeReaction is the reaction a chat adapter should add when the bot
// is mentioned.
const AcknowledgeReaction = "👁️"

// MessageResponse is returned by ReceiveMessage.
type MessageResponse struct {
	Action    string `json:"action"`
	RequestID string `json:"requestId,omitempty"`
	URL       string `json:"url,omitempty"`
	Reaction  string `json:"reaction,omitempty"`
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	URL    string `json:"url"`
	Author string `json:"author,omitempty"`
}

// IngestResponse is returned when a run has been started.
type IngestResponse struct {
	RequestID string `json:"requestId"`
}

// ReceiveMessage runs trigger detection on a chat message and starts at most
// one pipeline run for it.
func (h *Handlers) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	if !h.IsReady() {
		writeJSONError(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	var msg trigger.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		writeJSONError(w, "invalid message: "+err.Error(), http.StatusBadRequest)
		return
	}

	decision := h.detector.Evaluate(msg)
	switch decision.Action {
	case trigger.Acknowledge:
		writeJSONStatusCode(w, http.StatusOK, MessageResponse{Action: decision.Action.String(), Reaction: AcknowledgeReaction})
	case trigger.Ingest:
		req := pipeline.NewRequest(decision.URL, msg.Author)
		logging.ForRequest(req.RequestID).Info("Link from %s in %s: %s", msg.Author, channelName(msg), decision.URL)
		h.startRun(req)
		writeJSONStatusCode(w, http.StatusAccepted, MessageResponse{
			Action:    decision.Action.String(),
			RequestID: req.RequestID,
			URL:       decision.URL,
		})
	default:
		writeJSONStatusCode(w, http.StatusOK, MessageResponse{Action: decision.Action.String()})
	}
}

// Ingest starts a pipeline run for an explicit URL.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	if !h.IsReady() {
		writeJSONError(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	var body IngestRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSONError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateSourceURL(body.URL); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := pipeline.NewRequest(strings.TrimSpace(body.URL), body.Author)
	h.startRun(req)
	writeJSONStatusCode(w, http.StatusAccepted, IngestResponse{RequestID: req.RequestID})
}

type validationError string

func (e validationError) Error() string { return string(e) }

func validateSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return validationError("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return validationError("url is not valid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validationError("url must use http or https")
	}
	return nil
}

func channelName(msg trigger.Message) string {
	if msg.Thread != "" {
		return msg.Parent + "/" + msg.Thread
	}
	return msg.Channel
}
