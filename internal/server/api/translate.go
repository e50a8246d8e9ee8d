package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/silenttalk/signlens/internal/translate"
)

// maxTranslateBody limits the JSON body of a translate request.
const maxTranslateBody = 1 << 20

// TranslateHandler serves POST /api/translate.
type TranslateHandler struct {
	translator translate.Translator
	logger     *slog.Logger
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(t translate.Translator, logger *slog.Logger) *TranslateHandler {
	return &TranslateHandler{translator: t, logger: logger}
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateResponse struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translatedText"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *TranslateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req translateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTranslateBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "No text provided for translation")
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "vi"
	}
	if req.TargetLanguage != "vi" {
		writeError(w, http.StatusBadRequest, "Unsupported target language: "+req.TargetLanguage)
		return
	}

	vi, err := translate.Sentence(r.Context(), h.translator, req.Text)
	if err != nil {
		h.logger.Error("translate request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error translating text")
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		Success:        true,
		TranslatedText: vi,
		SourceLanguage: "en",
		TargetLanguage: req.TargetLanguage,
	})
}
