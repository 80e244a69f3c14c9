package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Spok95/estimate-bot/internal/domain/estimates"
)

const maxFormBytes = 64 << 10

type formHandler struct {
	forms FormSubmitter
	log   *slog.Logger
}

func (h *formHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "錯誤：無法解析表單", http.StatusBadRequest)
		return
	}

	e, err := h.forms.SubmitForm(r.Context(), r.PostForm)
	switch {
	case err == nil:
	case errors.Is(err, estimates.ErrNoItems):
		http.Error(w, "錯誤：請至少選擇一個服務項目", http.StatusBadRequest)
		return
	case errors.Is(err, estimates.ErrIncompleteContactInfo):
		http.Error(w, "錯誤：請填寫完整的聯絡資料", http.StatusBadRequest)
		return
	default:
		h.log.Error("form submit failed", "err", err)
		http.Error(w, "錯誤：表單提交處理失敗", http.StatusInternalServerError)
		return
	}

	h.log.Info("form estimate stored", "estimate_ref", e.Ref, "id", e.ID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Estimate-Ref", e.Ref)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
