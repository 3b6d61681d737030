package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"chat-hive/domain"
	apperrors "chat-hive/errors"
	"chat-hive/realtime"
	"chat-hive/repositories"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	maxAttachments     = 5
	maxAttachmentBytes = 25 << 20
	searchLimit        = 20
)

// Attachment uploads are limited to media the client can actually render.
var allowedAttachmentPrefixes = []string{"image/", "video/", "audio/"}

type handlers struct {
	Deps
}

func (h *handlers) searchUsers(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("name")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing name parameter")
		return
	}

	hits, err := h.Index.Search(r.Context(), term, searchLimit)
	if err != nil {
		h.Log.Error("User search failed", "term", term, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	// The requester never shows up in their own results.
	self := requestUser(r).ID
	hits = lo.Filter(hits, func(hit repositories.UserHit, _ int) bool { return hit.ID != self })

	writeJSON(w, http.StatusOK, map[string]any{"users": hits})
}

func (h *handlers) getMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	user := requestUser(r)

	members, err := h.Chats.Members(chatID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !lo.Contains(members, user.ID) {
		writeError(w, http.StatusForbidden, "not a member of this chat")
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := h.Messages.GetMessages(chatID, cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":   messages,
		"nextCursor": next,
	})
}

// uploadAttachments stores up to five uploaded blobs and emits them as one
// attachment message in the chat. The content type is sniffed from the
// bytes; the multipart declaration is never trusted.
func (h *handlers) uploadAttachments(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	user := requestUser(r)

	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 || len(files) > maxAttachments {
		writeError(w, http.StatusBadRequest, "between 1 and 5 files required")
		return
	}

	var attachments []domain.Attachment
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
		_ = file.Close()
		if err != nil || len(data) > maxAttachmentBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		detected := mimetype.Detect(data)
		if !allowedType(detected.String()) {
			writeError(w, http.StatusUnsupportedMediaType, apperrors.ErrUnsupportedFile.Error())
			return
		}

		attachment, err := h.Blobs.Store(r.Context(), header.Filename, detected.String(), data)
		if err != nil {
			h.Log.Error("Attachment store failed", "chat_id", chatID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not store attachment")
			return
		}
		attachments = append(attachments, attachment)
	}

	projection, err := h.Hub.SendMessage(r.Context(), user.ID, chatID, realtime.Content{
		Text:        r.FormValue("caption"),
		Attachments: attachments,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": projection})
}

func allowedType(detected string) bool {
	for _, prefix := range allowedAttachmentPrefixes {
		if strings.HasPrefix(detected, prefix) {
			return true
		}
	}
	return false
}

func (h *handlers) editMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	message, err := h.Hub.EditMessage(requestUser(r).ID, messageID, body.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message})
}

func (h *handlers) deleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := h.Hub.DeleteMessage(r.Context(), requestUser(r).ID, messageID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": messageID})
}

func (h *handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Monitor.Collect())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrChatNotFound),
		errors.Is(err, apperrors.ErrMessageNotFound),
		errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrPollNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrNotSender):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperrors.ErrEmptyContent),
		errors.Is(err, apperrors.ErrInvalidPoll),
		errors.Is(err, apperrors.ErrInvalidOption),
		errors.Is(err, apperrors.ErrPollClosed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
