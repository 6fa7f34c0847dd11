package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// documentJSON is the wire form of a document record.
type documentJSON struct {
	ID         string    `json:"pdf_id"`
	Name       string    `json:"name"`
	Indexed    bool      `json:"indexed"`
	ChunkCount int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDocumentJSON(rec domain.DocumentRecord) documentJSON {
	return documentJSON{
		ID:         rec.ID,
		Name:       rec.Name,
		Indexed:    rec.Indexed,
		ChunkCount: rec.ChunkCount,
		CreatedAt:  rec.CreatedAt,
	}
}

// uploadDocument accepts a multipart "file" field or a raw application/pdf
// body.
func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	req := domain.IngestRequest{
		Owner: GetIdentity(c),
		Force: queryBool(c, "force"),
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "multipart field \"file\" is required")
			return
		}
		data, err := readFormFile(header)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Name = header.Filename
		req.ContentType = header.Header.Get("Content-Type")
		req.Data = data
		if v := c.PostForm("force"); v != "" {
			req.Force, _ = strconv.ParseBool(v)
		}
	} else {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, fmt.Sprintf("read body: %v", err))
			return
		}
		req.Name = c.Query("name")
		req.ContentType = c.ContentType()
		req.Data = data
	}

	result, err := s.svc.Ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	message := "PDF indexed successfully"
	status := http.StatusCreated
	if result.AlreadyIndexed {
		message = "PDF already indexed, reusing existing index"
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"pdf_id":          result.DocumentID,
		"name":            result.Name,
		"chunks":          result.Chunks,
		"already_indexed": result.AlreadyIndexed,
		"message":         message,
	})
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) listDocuments(c *gin.Context) {
	records, err := s.svc.Documents.List(c.Request.Context(), GetIdentity(c))
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]documentJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, toDocumentJSON(rec))
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (s *Server) getDocument(c *gin.Context) {
	rec, err := s.svc.Documents.Get(c.Request.Context(), GetIdentity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentJSON(*rec))
}

func (s *Server) deleteDocument(c *gin.Context) {
	if err := s.svc.Documents.Delete(c.Request.Context(), GetIdentity(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// askRequest is the body of /ask and /ask/stream.
type askRequest struct {
	Question       string `json:"question" binding:"required"`
	DocumentID     string `json:"pdf_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
	Mode           string `json:"answer_mode"`
}

func (r askRequest) question(owner domain.Identity) domain.Question {
	return domain.Question{
		Owner:          owner,
		DocumentID:     r.DocumentID,
		ConversationID: r.ConversationID,
		Text:           r.Question,
		Mode:           domain.AnswerMode(strings.ToLower(strings.TrimSpace(r.Mode))),
	}
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	answer, err := s.svc.Answers.Ask(c.Request.Context(), req.question(GetIdentity(c)))
	if err != nil {
		fail(c, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":        []domain.ChatTurn{{Role: domain.RoleAssistant, Content: answer.Text}},
		"answer_type":     answer.Type,
		"confidence":      answer.Confidence,
		"sources":         sources,
		"conversation_id": answer.ConversationID,
	})
}

// askStream relays tokens as server-sent events and ends with [DONE].
// Errors after the stream has started are sent as an "error" event.
func (s *Server) askStream(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	events, err := s.svc.Answers.AskStream(c.Request.Context(), req.question(GetIdentity(c)))
	if err != nil {
		fail(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		switch {
		case ev.Err != nil:
			_, code := classify(ev.Err)
			writeEvent(w, "error", code+": "+ev.Err.Error())
			return false
		case ev.Done:
			writeEvent(w, "", "[DONE]")
			return false
		default:
			writeEvent(w, "", ev.Token)
			return true
		}
	})
}

// writeEvent frames one server-sent event. Multi-line payloads become
// multiple data lines.
func writeEvent(w io.Writer, event, data string) {
	var b strings.Builder
	if event != "" {
		b.WriteString("event:")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data:")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(w, b.String())
}

func (s *Server) conversationHistory(c *gin.Context) {
	turns, err := s.svc.Chat.History(c.Request.Context(), GetIdentity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": c.Param("id"),
		"messages":        turns,
	})
}

func (s *Server) resetConversation(c *gin.Context) {
	if err := s.svc.Chat.Reset(c.Request.Context(), GetIdentity(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat reset"})
}

func (s *Server) getSummary(c *gin.Context) {
	summary, err := s.svc.Summaries.Get(c.Request.Context(), GetIdentity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) createSummary(c *gin.Context) {
	s.summarize(c, false, "ok")
}

func (s *Server) regenerateSummary(c *gin.Context) {
	s.summarize(c, true, "regenerated")
}

func (s *Server) summarize(c *gin.Context, force bool, status string) {
	summary, err := s.svc.Summaries.Summarize(c.Request.Context(), GetIdentity(c), c.Param("id"), force)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"version": summary.Version,
		"summary": summary,
	})
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
