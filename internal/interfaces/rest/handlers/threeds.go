package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/interfaces/rest"
)

// redirectPage posts the hidden fields to the bank's OOS page as soon as it
// loads. The button is for browsers without scripts.
var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>3-D Secure</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

// Initiate3DS answers with the redirect form as JSON, or as a self-submitting
// HTML page when the client asks for text/html.
func (h *Handlers) Initiate3DS(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	initiation, err := h.threeDS.Initiate3DS(r.Context(), req.toCommand())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if err := redirectPage.Execute(w, initiation.Form); err != nil {
			h.logger.Error("render redirect form", "order_ref", initiation.OrderRef, "error", err)
		}
		return
	}

	fields := make(map[string]string, len(initiation.Form.Fields))
	for _, f := range initiation.Form.Fields {
		fields[f.Name] = f.Value
	}
	rest.WriteJSON(w, http.StatusOK, InitiateResponse{
		OrderRef: initiation.OrderRef,
		Action:   initiation.Form.Action,
		Fields:   fields,
	})
}

// Callback3DS receives the bank's form POST, verifies it and completes the
// transaction.
func (h *Handlers) Callback3DS(w http.ResponseWriter, r *http.Request) {
	orderRef, err := pathParam(r, "orderRef")
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	if err := r.ParseForm(); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	form := services.CallbackForm{
		BankData:     r.PostForm.Get("BankPacket"),
		MerchantData: r.PostForm.Get("MerchantPacket"),
		Sign:         r.PostForm.Get("Sign"),
		Mac:          r.PostForm.Get("Mac"),
		MdStatus:     r.PostForm.Get("MdStatus"),
		Xid:          r.PostForm.Get("Xid"),
		Amount:       r.PostForm.Get("Amount"),
		Currency:     r.PostForm.Get("Currency"),
		Eci:          r.PostForm.Get("Eci"),
		Cavv:         r.PostForm.Get("Cavv"),
	}

	resolution, err := h.threeDS.ResolveCallback(r.Context(), orderRef, form)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	result, err := h.threeDS.Finalize3DS(r.Context(), resolution)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, FinalizeResponse{
		OrderRef:         result.OrderRef,
		HostLogKey:       result.HostLogKey.String(),
		AuthCode:         result.AuthCode,
		AlreadyFinalized: result.AlreadyFinalized,
		MdStatus:         resolution.MdStatus,
	})
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	orderRef, err := pathParam(r, "orderRef")
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	session, err := h.threeDS.Session(r.Context(), orderRef)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, sessionBody(session))
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
