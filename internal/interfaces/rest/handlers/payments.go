package handlers

import (
	"net/http"

	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

func (h *Handlers) Sale(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.Sale(r.Context(), req.toCommand())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionBody(posnet.OpSale, resp.HostLogKey, resp.AuthCode, resp.Installment, resp.Points))
}

func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.Authorize(r.Context(), req.toCommand())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionBody(posnet.OpAuthorize, resp.HostLogKey, resp.AuthCode, resp.Installment, resp.Points))
}

func (h *Handlers) Capture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.Capture(r.Context(), services.CaptureCommand{
		OrderID:      req.OrderID,
		HostLogKey:   domain.HostLogKey(req.HostLogKey),
		Amount:       req.Amount,
		Currency:     req.Currency,
		Installments: req.Installments,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionBody(posnet.OpCapture, resp.HostLogKey, resp.AuthCode, resp.Installment, resp.Points))
}

func (h *Handlers) Reverse(w http.ResponseWriter, r *http.Request) {
	var req ReverseRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.Reverse(r.Context(), services.ReverseCommand{
		OrderID:     req.OrderID,
		HostLogKey:  domain.HostLogKey(req.HostLogKey),
		Transaction: posnet.Operation(req.Transaction),
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionBody(posnet.OpReverse, resp.HostLogKey, resp.AuthCode, nil, nil))
}

func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.Refund(r.Context(), services.RefundCommand{
		OrderID:    req.OrderID,
		HostLogKey: domain.HostLogKey(req.HostLogKey),
		Amount:     req.Amount,
		Currency:   req.Currency,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionBody(posnet.OpReturn, resp.HostLogKey, resp.AuthCode, nil, nil))
}

func (h *Handlers) PointInquiry(w http.ResponseWriter, r *http.Request) {
	var req PointInquiryRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.PointInquiry(r.Context(), req.Card.toInput())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, pointsBody(resp.Points))
}

func (h *Handlers) AgreementStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathParam(r, "orderId")
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp, err := h.payments.AgreementStatus(r.Context(), orderID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, agreementBody(orderID, resp))
}
