package handler

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/doclibre/ragline/internal/index"
	"github.com/doclibre/ragline/internal/pkg/response"
)

type StatusHandler struct {
	store index.Store
	names index.Names
}

func NewStatusHandler(store index.Store, names index.Names) *StatusHandler {
	return &StatusHandler{store: store, names: names.WithDefaults()}
}

type documentStatus struct {
	Key      string `json:"key"`
	Sections int    `json:"sections"`
	Summary  int    `json:"summary_sections"`
}

// Status reports per-document record counts for the full-text and summary
// indices so operators can spot partially indexed documents.
func (h *StatusHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	fullText, err := h.store.CountByDocument(ctx, h.names.FullText)
	if err != nil {
		handleError(c, err)
		return
	}
	summary, err := h.store.CountByDocument(ctx, h.names.Summary)
	if err != nil {
		handleError(c, err)
		return
	}
	keys := make(map[string]struct{}, len(fullText))
	for k := range fullText {
		keys[k] = struct{}{}
	}
	for k := range summary {
		keys[k] = struct{}{}
	}
	docs := make([]documentStatus, 0, len(keys))
	for k := range keys {
		docs = append(docs, documentStatus{
			Key:      k,
			Sections: fullText[k],
			Summary:  summary[k],
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	response.Success(c, gin.H{
		"document_count": len(docs),
		"documents":      docs,
	})
}
